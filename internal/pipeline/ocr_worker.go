package pipeline

import (
	"context"

	"github.com/healthfolio/labtrends-backend/internal/models"
	"github.com/healthfolio/labtrends-backend/internal/ocr"
	"github.com/healthfolio/labtrends-backend/internal/s3io"

	"go.uber.org/zap"
)

// Detector runs OCR on a stored object.
type Detector interface {
	Detect(ctx context.Context, bucket, key string) (*ocr.Document, error)
}

// DocumentStore persists JSON documents, overwriting on rewrite.
type DocumentStore interface {
	PutJSON(ctx context.Context, key string, v any) error
	GetJSON(ctx context.Context, key string, v any) error
}

// OCRWorker consumes OCR stage jobs: invoke the engine, persist the raw
// output at a key derived from the object key, then hand off to field
// extraction. Reprocessing the same object overwrites the same
// intermediate key, so duplicate deliveries converge.
type OCRWorker struct {
	Engine    Detector
	Docs      DocumentStore
	Markers   Markers
	FieldJobs JobPublisher
	RawBucket string
	Logger    *zap.Logger
}

// Process handles one OCR job. Errors returned are retryable; the queue
// redelivers until the retry budget moves the job to the dead-letter path.
func (w *OCRWorker) Process(ctx context.Context, job models.StageJob) error {
	log := w.Logger.With(
		zap.String("object_key", job.ObjectKey),
		zap.Int("attempt", job.Attempt))

	doc, err := w.Engine.Detect(ctx, w.RawBucket, job.ObjectKey)
	if err != nil {
		log.Warn("ocr invocation failed", zap.Error(err))
		return err
	}

	intermediateKey := s3io.ResultKey(job.ObjectKey)
	if err := w.Docs.PutJSON(ctx, intermediateKey, doc); err != nil {
		log.Warn("intermediate write failed", zap.Error(err))
		return err
	}
	if err := w.Markers.MarkStageDone(ctx, job.ObjectKey, models.StageOCR); err != nil {
		return err
	}

	// Enqueue-after-write is the only ordering guarantee the pipeline
	// makes: field extraction never sees an object before its OCR output
	// exists.
	enqueue, err := w.Markers.ShouldEnqueue(ctx, job.ObjectKey, models.StageField)
	if err != nil {
		return err
	}
	if enqueue {
		if err := w.FieldJobs.Publish(ctx, models.StageJob{
			ObjectKey:       job.ObjectKey,
			Stage:           models.StageField,
			IntermediateKey: intermediateKey,
		}); err != nil {
			return err
		}
	}

	log.Info("ocr complete",
		zap.String("intermediate_key", intermediateKey),
		zap.Int("blocks", len(doc.Blocks)))
	return nil
}
