// Package pipeline wires the extraction stages together: the storage
// trigger, the OCR and field-extraction workers, and the dead-letter
// handler. Stages communicate only through the stage queues and
// identity-keyed writes; there is no shared in-memory state.
package pipeline

import (
	"context"

	"github.com/healthfolio/labtrends-backend/internal/models"

	"go.uber.org/zap"
)

// Markers is the stage-idempotence surface of the repository.
type Markers interface {
	ShouldEnqueue(ctx context.Context, objectKey string, stage models.Stage) (bool, error)
	MarkStageDone(ctx context.Context, objectKey string, stage models.Stage) error
	MarkStageDead(ctx context.Context, objectKey string, stage models.Stage, reason string) error
}

// JobPublisher enqueues a stage job.
type JobPublisher interface {
	Publish(ctx context.Context, job models.StageJob) error
}

// Trigger reacts to raw-image writes: every successful write yields exactly
// one OCR job, even under duplicate delivery of the notification.
type Trigger struct {
	Markers Markers
	OCRJobs JobPublisher
	Logger  *zap.Logger
}

// HandleObjectCreated enqueues the OCR stage for a newly written object.
// Duplicate notifications for a key whose OCR stage already completed are
// dropped; in-flight duplicates are tolerated downstream.
func (t *Trigger) HandleObjectCreated(ctx context.Context, objectKey string) error {
	enqueue, err := t.Markers.ShouldEnqueue(ctx, objectKey, models.StageOCR)
	if err != nil {
		return err
	}
	if !enqueue {
		t.Logger.Info("duplicate storage notification ignored",
			zap.String("object_key", objectKey))
		return nil
	}
	if err := t.OCRJobs.Publish(ctx, models.StageJob{
		ObjectKey: objectKey,
		Stage:     models.StageOCR,
	}); err != nil {
		return err
	}
	t.Logger.Info("ocr job enqueued", zap.String("object_key", objectKey))
	return nil
}
