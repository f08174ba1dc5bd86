package validate

import (
	"strings"
	"testing"

	"github.com/healthfolio/labtrends-backend/internal/fault"

	"github.com/stretchr/testify/assert"
)

func TestContentType(t *testing.T) {
	assert.NoError(t, ContentType("image/jpeg"))
	assert.NoError(t, ContentType("image/png"))
	assert.NoError(t, ContentType(" IMAGE/JPG "))

	for _, ct := range []string{"", "application/pdf", "image/gif", "text/plain"} {
		err := ContentType(ct)
		assert.Error(t, err, ct)
		assert.True(t, fault.Is(err, fault.InvalidRequest), ct)
	}
}

func TestFilename(t *testing.T) {
	assert.NoError(t, Filename("report.jpg"))
	assert.NoError(t, Filename("scan.JPEG"))
	assert.NoError(t, Filename("photo.png"))

	for _, fn := range []string{"", "report", "report.pdf", "report.jpg.exe"} {
		assert.Error(t, Filename(fn), fn)
	}
}

func TestIndicators(t *testing.T) {
	assert.NoError(t, Indicators([]string{"Glucose", "Vitamin D", "LDL (calc)", "Hemoglobin A1c", "ESR mm/hr"}))

	assert.Error(t, Indicators(nil))
	assert.Error(t, Indicators([]string{"glucose", ""}))
	assert.Error(t, Indicators([]string{"#bad"}))
	assert.Error(t, Indicators([]string{strings.Repeat("a", 65)}))

	many := make([]string, 21)
	for i := range many {
		many[i] = "Glucose"
	}
	assert.Error(t, Indicators(many))
}

func TestPatientID(t *testing.T) {
	assert.NoError(t, PatientID(""))
	assert.NoError(t, PatientID("pat-42"))

	assert.Error(t, PatientID("a#b"))
	assert.Error(t, PatientID("a/b"))
	assert.Error(t, PatientID("a b"))
	assert.Error(t, PatientID(strings.Repeat("x", 65)))
}
