// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Env holds the configuration values for the application. Each Lambda reads
// the subset it needs; only the table name is required everywhere.
type Env struct {
	Region        string
	RawBucket     string // raw report images + upload metadata
	ResultsBucket string // intermediate OCR output
	Table         string
	OCRQueueURL   string
	FieldQueueURL string
	AlertTopicARN string // operator channel for dead-lettered jobs

	PresignTTL   time.Duration
	UploadExpiry time.Duration // ISSUED uploads past this window are EXPIRED
	UploadQuota  int           // max outstanding ISSUED uploads per user
	OCRTimeout   time.Duration // wall-clock bound on one OCR invocation

	DevBypassAuth bool
}

// MustLoad reads the environment variables and returns an Env struct.
func MustLoad() Env {
	ttlSec, _ := strconv.Atoi(get("PRESIGN_TTL_SECONDS", "300"))
	expiryHours, _ := strconv.Atoi(get("UPLOAD_EXPIRY_HOURS", "24"))
	quota, _ := strconv.Atoi(get("UPLOAD_QUOTA", "10"))
	ocrSec, _ := strconv.Atoi(get("OCR_TIMEOUT_SECONDS", "30"))
	devBypass := get("DEV_BYPASS_AUTH", "") == "true"
	e := Env{
		Region:        get("AWS_REGION", "us-east-1"),
		RawBucket:     get("RAW_BUCKET", ""),
		ResultsBucket: get("RESULTS_BUCKET", ""),
		Table:         must("DDB_TABLE"),
		OCRQueueURL:   get("OCR_QUEUE_URL", ""),
		FieldQueueURL: get("FIELD_QUEUE_URL", ""),
		AlertTopicARN: get("ALERT_TOPIC_ARN", ""),
		PresignTTL:    time.Duration(ttlSec) * time.Second,
		UploadExpiry:  time.Duration(expiryHours) * time.Hour,
		UploadQuota:   quota,
		OCRTimeout:    time.Duration(ocrSec) * time.Second,
		DevBypassAuth: devBypass,
	}
	return e
}

// get returns the value of the environment variable k or def if not set.
func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// must returns the value of the environment variable k or panics if not set.
func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic(fmt.Errorf("missing env %s", k))
	}
	return v
}
