// Package queue publishes and parses the stage jobs flowing between
// pipeline workers over SQS. Delivery is at-least-once; retry is driven by
// redelivery and the receive count, exhaustion by the queue's DLQ policy.
package queue

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/healthfolio/labtrends-backend/internal/fault"
	"github.com/healthfolio/labtrends-backend/internal/models"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SendAPI is the slice of the SQS client the publisher needs.
type SendAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publisher sends stage jobs to one queue.
type Publisher struct {
	Client SendAPI
	URL    string
}

// Publish enqueues a job.
func (p *Publisher) Publish(ctx context.Context, job models.StageJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fault.Wrap(fault.Internal, err, "marshal stage job")
	}
	_, err = p.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.URL),
		MessageBody: aws.String(string(body)),
	})
	return fault.Wrap(fault.Transient, err, "send stage job")
}

// ParseJob decodes a stage job from an SQS message body and stamps the
// delivery attempt from the receive count.
func ParseJob(msg events.SQSMessage) (models.StageJob, error) {
	var job models.StageJob
	if err := json.Unmarshal([]byte(msg.Body), &job); err != nil {
		return job, fault.Wrap(fault.InvalidRequest, err, "malformed stage job")
	}
	if job.ObjectKey == "" || job.Stage == "" {
		return job, fault.New(fault.InvalidRequest, "stage job missing object key or stage")
	}
	job.Attempt = Attempt(msg)
	return job, nil
}

// Attempt returns the 1-based delivery attempt of an SQS message.
func Attempt(msg events.SQSMessage) int {
	if v, ok := msg.Attributes["ApproximateReceiveCount"]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 1
}
