package s3io

import (
	"fmt"
	"path"
	"strings"
)

// Object key layout. Raw images live under uploads/<user>/<uploadID>/<filename>
// in the raw bucket; OCR output lands in the results bucket at a key derived
// deterministically from the raw key so reprocessing overwrites.
const (
	rawPrefix    = "uploads/"
	resultPrefix = "ocr-results/"
	resultSuffix = "_ocr.json"
)

// ObjectKey constructs the raw-image key for an upload. The user segment
// scopes keys per user; the ULID segment makes them unique and
// non-enumerable.
func ObjectKey(userID, uploadID, filename string) string {
	return fmt.Sprintf("%s%s/%s/%s", rawPrefix, userID, uploadID, filename)
}

// ParseObjectKey extracts the user and upload IDs from a raw-image key.
func ParseObjectKey(key string) (userID, uploadID string, ok bool) {
	if !strings.HasPrefix(key, rawPrefix) {
		return "", "", false
	}
	parts := strings.Split(strings.TrimPrefix(key, rawPrefix), "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// IsRawKey reports whether key addresses the raw-image area.
func IsRawKey(key string) bool {
	_, _, ok := ParseObjectKey(key)
	return ok
}

// ResultKey derives the intermediate OCR-output key for a raw-image key.
// uploads/u/id/report.jpg -> ocr-results/uploads/u/id/report_ocr.json
func ResultKey(objectKey string) string {
	ext := path.Ext(objectKey)
	base := strings.TrimSuffix(objectKey, ext)
	return resultPrefix + base + resultSuffix
}
