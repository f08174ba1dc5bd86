package pipeline

import (
	"context"
	"fmt"

	"github.com/healthfolio/labtrends-backend/internal/fault"
	"github.com/healthfolio/labtrends-backend/internal/models"
	"github.com/healthfolio/labtrends-backend/internal/s3io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"
)

// AlertAPI is the slice of the SNS client used for operator alerts.
type AlertAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// DeadLetterWorker consumes jobs that exhausted their retry budget. It pins
// the DEAD marker, marks the originating upload FAILED so the user can be
// told, and raises an operator alert. A dead job never disappears silently.
type DeadLetterWorker struct {
	Uploads  Uploads
	Markers  Markers
	Alerts   AlertAPI
	TopicARN string
	Logger   *zap.Logger
}

// Process handles one dead-lettered job.
func (w *DeadLetterWorker) Process(ctx context.Context, job models.StageJob) error {
	log := w.Logger.With(
		zap.String("object_key", job.ObjectKey),
		zap.String("stage", string(job.Stage)),
		zap.Int("attempt", job.Attempt))
	log.Error("job dead-lettered")

	reason := fmt.Sprintf("retry budget exhausted after %d attempts", job.Attempt)
	if err := w.Markers.MarkStageDead(ctx, job.ObjectKey, job.Stage, reason); err != nil {
		return err
	}

	if userID, uploadID, ok := s3io.ParseObjectKey(job.ObjectKey); ok {
		err := w.Uploads.SetUploadOutcome(ctx, userID, uploadID,
			models.OutcomeFailed, nil, nil, reason)
		if err != nil && !fault.Is(err, fault.NotFound) {
			return err
		}
	}

	if w.Alerts != nil && w.TopicARN != "" {
		_, err := w.Alerts.Publish(ctx, &sns.PublishInput{
			TopicArn: aws.String(w.TopicARN),
			Subject:  aws.String("extraction job dead-lettered"),
			Message: aws.String(fmt.Sprintf(
				"object=%s stage=%s: %s", job.ObjectKey, job.Stage, reason)),
		})
		if err != nil {
			return fault.Wrap(fault.Transient, err, "publish operator alert")
		}
	}
	return nil
}
