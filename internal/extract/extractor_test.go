package extract

import (
	"testing"

	"github.com/healthfolio/labtrends-backend/internal/models"
	"github.com/healthfolio/labtrends-backend/internal/ocr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// doc builds a Document whose lines stack top to bottom in the given order.
func doc(lines ...string) *ocr.Document {
	d := &ocr.Document{}
	for i, text := range lines {
		d.Blocks = append(d.Blocks, ocr.Block{
			Type:       "LINE",
			Text:       text,
			Confidence: 99,
			Top:        float64(i) * 0.05,
			Left:       0.1,
			Width:      0.8,
			Height:     0.02,
		})
	}
	return d
}

func upload(indicators ...string) *models.PendingUpload {
	return &models.PendingUpload{
		UserID:     "user-1",
		UploadID:   "01HZXW3V8N0000000000000000",
		ObjectKey:  "uploads/user-1/01HZXW3V8N0000000000000000/report.jpg",
		CreatedAt:  "2025-01-21T10:30:00Z",
		Indicators: indicators,
	}
}

func TestRunExtractsFullRecord(t *testing.T) {
	d := doc(
		"Laboratory: City Medical Lab",
		"Patient Name: Jane Roe",
		"Collected On: Jan 21, 2025",
		"Cholesterol 195 mg/dL (Range: 125-200)",
	)
	out := Run(upload("cholesterol"), d)

	require.Len(t, out.Records, 1)
	require.Empty(t, out.Gaps)

	rec := out.Records[0]
	assert.Equal(t, "Cholesterol", rec.Indicator)
	assert.Equal(t, 195.0, rec.Result)
	assert.Equal(t, "mg/dL", rec.Units)
	require.NotNil(t, rec.LowerRange)
	require.NotNil(t, rec.UpperRange)
	assert.Equal(t, 125.0, *rec.LowerRange)
	assert.Equal(t, 200.0, *rec.UpperRange)
	assert.Equal(t, "2025-01-21", rec.CollectedDate)
	assert.Equal(t, "City Medical Lab", rec.Laboratory)
	assert.Equal(t, "Jane Roe", rec.PatientName)
}

func TestRunMissingIndicatorYieldsGapNotFailure(t *testing.T) {
	d := doc(
		"Hemoglobin 13.5 g/dL",
		"Glucose 92 mg/dL",
	)
	out := Run(upload("hemoglobin", "ferritin", "glucose"), d)

	require.Len(t, out.Records, 2)
	assert.Equal(t, []string{"ferritin"}, out.Gaps)
	assert.Equal(t, "Hemoglobin", out.Records[0].Indicator)
	assert.Equal(t, "Glucose", out.Records[1].Indicator)
}

func TestRunNameWithoutNumberIsGap(t *testing.T) {
	d := doc("Cholesterol pending, see addendum")
	out := Run(upload("cholesterol"), d)

	assert.Empty(t, out.Records)
	assert.Equal(t, []string{"cholesterol"}, out.Gaps)
}

func TestRunMultiWordIndicator(t *testing.T) {
	d := doc("Vitamin D 32.4 ng/mL 30-100")
	out := Run(upload("vitamin d"), d)

	require.Len(t, out.Records, 1)
	rec := out.Records[0]
	assert.Equal(t, "Vitamin D", rec.Indicator)
	assert.Equal(t, 32.4, rec.Result)
	assert.Equal(t, "ng/mL", rec.Units)
	require.NotNil(t, rec.LowerRange)
	assert.Equal(t, 30.0, *rec.LowerRange)
	assert.Equal(t, 100.0, *rec.UpperRange)
}

func TestRunSpelledOutRange(t *testing.T) {
	d := doc("Potassium 4.1 mmol/L 3.5 to 5.0")
	out := Run(upload("potassium"), d)

	require.Len(t, out.Records, 1)
	rec := out.Records[0]
	assert.Equal(t, 4.1, rec.Result)
	require.NotNil(t, rec.LowerRange)
	assert.Equal(t, 3.5, *rec.LowerRange)
	assert.Equal(t, 5.0, *rec.UpperRange)
}

func TestRunParenthesizedUnits(t *testing.T) {
	d := doc("Cholesterol 195 (mg/dL) Range: 125-200")
	out := Run(upload("cholesterol"), d)

	require.Len(t, out.Records, 1)
	rec := out.Records[0]
	assert.Equal(t, 195.0, rec.Result)
	assert.Equal(t, "mg/dL", rec.Units)
	require.NotNil(t, rec.LowerRange)
	assert.Equal(t, 125.0, *rec.LowerRange)
	assert.Equal(t, 200.0, *rec.UpperRange)
}

func TestRunInvertedRangeDroppedRecordKept(t *testing.T) {
	d := doc("Glucose 92 mg/dL Range: 110-70")
	out := Run(upload("glucose"), d)

	require.Len(t, out.Records, 1)
	require.Empty(t, out.Gaps)
	rec := out.Records[0]
	assert.Equal(t, 92.0, rec.Result)
	assert.Nil(t, rec.LowerRange)
	assert.Nil(t, rec.UpperRange)
}

func TestRunInlineDateOverridesHeader(t *testing.T) {
	d := doc(
		"Collected On: Jan 1, 2025",
		"TSH 2.1 mIU/L 2025-03-15",
	)
	out := Run(upload("tsh"), d)

	require.Len(t, out.Records, 1)
	assert.Equal(t, "2025-03-15", out.Records[0].CollectedDate)
}

func TestRunDateFallsBackToUploadDay(t *testing.T) {
	d := doc("Glucose 92 mg/dL")
	out := Run(upload("glucose"), d)

	require.Len(t, out.Records, 1)
	assert.Equal(t, "2025-01-21", out.Records[0].CollectedDate)
}

func TestRunWindowDoesNotBleedIntoLaterRows(t *testing.T) {
	// The result for calcium sits four lines below its name, outside the
	// scan window; the indicator must come back as a gap.
	d := doc(
		"Calcium",
		"line one",
		"line two",
		"line three",
		"9.4 mg/dL",
	)
	out := Run(upload("calcium"), d)

	assert.Empty(t, out.Records)
	assert.Equal(t, []string{"calcium"}, out.Gaps)
}

func TestRunDerivesPatientIDWhenUnset(t *testing.T) {
	d := doc(
		"Patient: Jane Roe",
		"Glucose 92 mg/dL",
	)
	u := upload("glucose")
	out := Run(u, d)
	out2 := Run(u, d)

	require.Len(t, out.Records, 1)
	id := out.Records[0].PatientID
	assert.NotEmpty(t, id)
	assert.Equal(t, id, out2.Records[0].PatientID, "derived patient id must be stable")

	u.PatientID = "explicit-patient"
	out3 := Run(u, d)
	assert.Equal(t, "explicit-patient", out3.Records[0].PatientID)
}

func TestRunVersionDeterministic(t *testing.T) {
	u := upload("glucose")
	d := doc("Glucose 92 mg/dL")

	out := Run(u, d)
	out2 := Run(u, d)
	require.Len(t, out.Records, 1)
	assert.NotZero(t, out.Records[0].Version)
	assert.Equal(t, out.Records[0].Version, out2.Records[0].Version)
}

func TestCanonical(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"cholesterol", "Cholesterol"},
		{"vitamin d", "Vitamin D"},
		{"LDL", "LDL"},
		{"ldl cholesterol", "Ldl Cholesterol"},
		{"  hemoglobin   a1c ", "Hemoglobin A1c"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Canonical(tc.in), tc.in)
	}
}

func TestParseRangeToken(t *testing.T) {
	lo, hi, ok := parseRangeToken("range:125-200")
	require.True(t, ok)
	assert.Equal(t, 125.0, lo)
	assert.Equal(t, 200.0, hi)

	_, _, ok = parseRangeToken("125-")
	assert.False(t, ok)
	_, _, ok = parseRangeToken("normal")
	assert.False(t, ok)
}

func TestParseNumberRejectsNonFinite(t *testing.T) {
	v, ok := parseNumber("1,234.5")
	require.True(t, ok)
	assert.Equal(t, 1234.5, v)

	_, ok = parseNumber("NaN")
	assert.False(t, ok)
	_, ok = parseNumber("Inf")
	assert.False(t, ok)
	_, ok = parseNumber("abc")
	assert.False(t, ok)
}
