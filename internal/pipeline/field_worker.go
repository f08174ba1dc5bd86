package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/healthfolio/labtrends-backend/internal/ddb"
	"github.com/healthfolio/labtrends-backend/internal/extract"
	"github.com/healthfolio/labtrends-backend/internal/fault"
	"github.com/healthfolio/labtrends-backend/internal/models"
	"github.com/healthfolio/labtrends-backend/internal/ocr"
	"github.com/healthfolio/labtrends-backend/internal/s3io"

	"go.uber.org/zap"
)

// Uploads is the pending-upload surface of the repository.
type Uploads interface {
	GetPendingUpload(ctx context.Context, userID, uploadID string) (*models.PendingUpload, error)
	MarkUploadExpired(ctx context.Context, userID, uploadID string) error
	SetUploadOutcome(ctx context.Context, userID, uploadID string, outcome models.UploadOutcome, recordIDs, gaps []string, failReason string) error
}

// Records is the record-store surface of the repository.
type Records interface {
	UpsertRecord(ctx context.Context, rec models.IndicatorRecord) error
}

// FieldWorker consumes field-extraction jobs: load the owning pending
// upload, parse the intermediate OCR output, and upsert validated records.
// Re-runs against the same object converge on the same store state.
type FieldWorker struct {
	Uploads      Uploads
	Records      Records
	Markers      Markers
	Docs         DocumentStore
	UploadExpiry time.Duration
	Logger       *zap.Logger
}

// Process handles one field-extraction job. An upload that is missing or
// expired makes the job an orphan: logged and dropped, never retried,
// because the upload's intent is unrecoverable.
func (w *FieldWorker) Process(ctx context.Context, job models.StageJob) error {
	log := w.Logger.With(
		zap.String("object_key", job.ObjectKey),
		zap.Int("attempt", job.Attempt))

	userID, uploadID, ok := s3io.ParseObjectKey(job.ObjectKey)
	if !ok {
		return w.orphan(ctx, job, log, "object key outside the raw-image area")
	}

	upload, err := w.Uploads.GetPendingUpload(ctx, userID, uploadID)
	if err != nil {
		if fault.Is(err, fault.NotFound) {
			return w.orphan(ctx, job, log, "pending upload is gone")
		}
		return err
	}
	if ddb.Expired(upload, w.UploadExpiry, time.Now()) {
		// Best effort; the lazy check above is authoritative.
		_ = w.Uploads.MarkUploadExpired(ctx, userID, uploadID)
		return w.orphan(ctx, job, log, "pending upload expired")
	}

	intermediateKey := job.IntermediateKey
	if intermediateKey == "" {
		intermediateKey = s3io.ResultKey(job.ObjectKey)
	}
	var doc ocr.Document
	if err := w.Docs.GetJSON(ctx, intermediateKey, &doc); err != nil {
		log.Warn("intermediate read failed", zap.Error(err))
		return err
	}

	outcome := extract.Run(upload, &doc)

	recordIDs := make([]string, 0, len(outcome.Records))
	for _, rec := range outcome.Records {
		if err := w.Records.UpsertRecord(ctx, rec); err != nil {
			if errors.Is(err, ddb.ErrStaleVersion) {
				// A user edit or newer extraction already owns this
				// identity; the pipeline must not win.
				log.Info("stale record write skipped",
					zap.String("record_id", rec.ID()))
				recordIDs = append(recordIDs, rec.ID())
				continue
			}
			return err
		}
		recordIDs = append(recordIDs, rec.ID())
	}

	status := models.OutcomeReady
	if len(outcome.Gaps) > 0 {
		status = models.OutcomeGap
	}
	if err := w.Uploads.SetUploadOutcome(ctx, userID, uploadID, status, recordIDs, outcome.Gaps, ""); err != nil {
		return err
	}
	if err := w.Markers.MarkStageDone(ctx, job.ObjectKey, models.StageField); err != nil {
		return err
	}

	log.Info("field extraction complete",
		zap.Int("records", len(recordIDs)),
		zap.Strings("gaps", outcome.Gaps))
	return nil
}

// orphan drops a job whose source upload cannot be recovered. Returns nil
// so the queue does not retry; the DEAD marker keeps it operator-visible.
func (w *FieldWorker) orphan(ctx context.Context, job models.StageJob, log *zap.Logger, reason string) error {
	log.Error("orphan job dropped", zap.String("reason", reason))
	return w.Markers.MarkStageDead(ctx, job.ObjectKey, models.StageField, "orphan: "+reason)
}
