package pipeline

import (
	"context"

	"github.com/healthfolio/labtrends-backend/internal/models"
	"github.com/healthfolio/labtrends-backend/internal/queue"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// HandleBatch consumes one SQS batch for a stage, reporting failed messages
// individually so only they are redelivered. A malformed message is never
// silently dropped: when its body still names an object key the failure is
// pinned as a DEAD marker for that key, otherwise the message itself is
// failed so redrive carries it to the dead-letter queue.
func HandleBatch(ctx context.Context, stage models.Stage, markers Markers, logger *zap.Logger, msgs []events.SQSMessage, process func(context.Context, models.StageJob) error) events.SQSEventResponse {
	var resp events.SQSEventResponse
	for _, msg := range msgs {
		job, err := queue.ParseJob(msg)
		if err != nil {
			logger.Error("malformed stage job",
				zap.String("object_key", job.ObjectKey), zap.Error(err))
			if job.ObjectKey != "" {
				if derr := markers.MarkStageDead(ctx, job.ObjectKey, stage, "malformed job: "+err.Error()); derr == nil {
					continue
				}
			}
			resp.BatchItemFailures = append(resp.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: msg.MessageId})
			continue
		}
		if err := process(ctx, job); err != nil {
			resp.BatchItemFailures = append(resp.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: msg.MessageId})
		}
	}
	return resp
}
