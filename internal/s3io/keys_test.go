package s3io

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKeyRoundTrip(t *testing.T) {
	key := ObjectKey("user-1", "01HZXW3V8N", "report.jpg")
	assert.Equal(t, "uploads/user-1/01HZXW3V8N/report.jpg", key)

	userID, uploadID, ok := ParseObjectKey(key)
	require.True(t, ok)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, "01HZXW3V8N", uploadID)
}

func TestParseObjectKeyRejectsForeignKeys(t *testing.T) {
	bad := []string{
		"",
		"report.jpg",
		"uploads/user-1/report.jpg",            // missing upload segment
		"uploads/user-1/01HZ/extra/report.jpg", // too deep
		"uploads//01HZ/report.jpg",             // empty user
		"ocr-results/uploads/u/id/r_ocr.json",  // results area
		"exports/user-1/01HZ/report.jpg",       // wrong prefix
	}
	for _, key := range bad {
		_, _, ok := ParseObjectKey(key)
		assert.False(t, ok, key)
		assert.False(t, IsRawKey(key), key)
	}
}

func TestResultKeyDeterministic(t *testing.T) {
	raw := "uploads/user-1/01HZ/report.jpg"
	want := "ocr-results/uploads/user-1/01HZ/report_ocr.json"
	assert.Equal(t, want, ResultKey(raw))
	assert.Equal(t, want, ResultKey(raw), "reprocessing must hit the same key")
}
