// Package models defines the durable and wire-level data types of the pipeline.
package models

import (
	"fmt"
	"strings"
)

// UploadState tracks the lifecycle of a pending upload.
type UploadState string

// Possible values for UploadState.
const (
	UploadIssued    UploadState = "ISSUED"
	UploadConfirmed UploadState = "CONFIRMED"
	UploadExpired   UploadState = "EXPIRED"
)

// UploadOutcome is the caller-visible extraction status of an upload.
type UploadOutcome string

// Possible values for UploadOutcome.
const (
	OutcomePending UploadOutcome = "PENDING"
	OutcomeReady   UploadOutcome = "READY"
	OutcomeFailed  UploadOutcome = "FAILED"
	OutcomeGap     UploadOutcome = "GAP" // extracted, but some expected indicators were not found
)

// PendingUpload is the bookkeeping record created when a write credential is
// issued, and updated as the extraction pipeline progresses.
type PendingUpload struct {
	// DynamoDB keys
	PK string `dynamodbav:"PK"` // USER#<sub>
	SK string `dynamodbav:"SK"` // UPLOAD#<uploadID> (ULID)

	UploadID    string        `dynamodbav:"upload_id"`
	UserID      string        `dynamodbav:"user_id"`
	PatientID   string        `dynamodbav:"patient_id"`
	Filename    string        `dynamodbav:"filename"`
	ObjectKey   string        `dynamodbav:"object_key"`
	ContentType string        `dynamodbav:"content_type"`
	Indicators  []string      `dynamodbav:"indicators"` // expected indicator names
	State       UploadState   `dynamodbav:"state"`
	CreatedAt   string        `dynamodbav:"created_at"` // ISO8601
	ConfirmedAt string        `dynamodbav:"confirmed_at,omitempty"`
	Outcome     UploadOutcome `dynamodbav:"outcome"`
	RecordIDs   []string      `dynamodbav:"record_ids,omitempty"` // identities of produced records
	Gaps        []string      `dynamodbav:"gaps,omitempty"`       // expected indicators not located
	FailReason  string        `dynamodbav:"fail_reason,omitempty"`
}

// IndicatorRecord is one validated health-indicator reading. Identity is
// (user, patient, collected date, indicator); at most one live record exists
// per identity and upserts are gated on Version.
type IndicatorRecord struct {
	PK string `dynamodbav:"PK"` // USER#<sub>
	SK string `dynamodbav:"SK"` // REC#<patientID>#<date>#<indicator>

	UserID        string   `dynamodbav:"user_id"`
	PatientID     string   `dynamodbav:"patient_id"`
	PatientName   string   `dynamodbav:"patient_name,omitempty"`
	Indicator     string   `dynamodbav:"indicator"`      // canonical casing
	CollectedDate string   `dynamodbav:"collected_date"` // YYYY-MM-DD, calendar granularity
	Result        float64  `dynamodbav:"result"`
	Units         string   `dynamodbav:"units,omitempty"`
	LowerRange    *float64 `dynamodbav:"lower_range,omitempty"`
	UpperRange    *float64 `dynamodbav:"upper_range,omitempty"`
	Laboratory    string   `dynamodbav:"laboratory,omitempty"`
	SourceKey     string   `dynamodbav:"source_object_key"`
	Version       int64    `dynamodbav:"record_version"` // unix millis; edits always mint a newer one
}

// RecordID returns the client-facing identity string for a record,
// patientID#date#indicator.
func RecordID(patientID, date, indicator string) string {
	return fmt.Sprintf("%s#%s#%s", patientID, date, indicator)
}

// ID returns the record's identity string.
func (r IndicatorRecord) ID() string {
	return RecordID(r.PatientID, r.CollectedDate, r.Indicator)
}

// ParseRecordID splits an identity string back into its parts.
func ParseRecordID(id string) (patientID, date, indicator string, ok bool) {
	parts := strings.SplitN(id, "#", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// Stage names a pipeline stage for job routing and idempotence markers.
type Stage string

// Pipeline stages.
const (
	StageOCR   Stage = "OCR"
	StageField Stage = "FIELD_EXTRACTION"
)

// StageJob is the queue message passed between pipeline stages.
// Delivery is at-least-once; consumers are idempotent on (ObjectKey, Stage).
type StageJob struct {
	ObjectKey       string `json:"object_key"`
	Stage           Stage  `json:"stage"`
	IntermediateKey string `json:"intermediate_key,omitempty"` // set for FIELD_EXTRACTION
	Attempt         int    `json:"attempt"`
}

// TrendPoint is one chart point in a series.
type TrendPoint struct {
	Date       string  `json:"date"`
	Result     float64 `json:"result"`
	Laboratory string  `json:"laboratory,omitempty"`
}

// TrendSeries is the derived, chart-ready view for one (user, indicator).
// Never persisted.
type TrendSeries struct {
	Indicator  string       `json:"indicator"`
	Units      string       `json:"units,omitempty"`
	LowerRange *float64     `json:"lower_range,omitempty"`
	UpperRange *float64     `json:"upper_range,omitempty"`
	Points     []TrendPoint `json:"points"`
}
