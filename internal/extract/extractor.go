// Package extract turns OCR token streams into validated indicator records.
// The matcher is deterministic: the same document and expected-indicator
// list always yield the same records.
package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/healthfolio/labtrends-backend/internal/models"
	"github.com/healthfolio/labtrends-backend/internal/ocr"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Window bounds for locating an indicator's fields: values must appear
// within this many tokens after the name, on the same or the next two lines.
const (
	windowTokens = 14
	windowLines  = 2
)

// Outcome is the result of one extraction run. Gaps are expected indicators
// that produced no valid record; they are a normal outcome, surfaced to the
// user for manual entry, never a failure.
type Outcome struct {
	Records []models.IndicatorRecord
	Gaps    []string

	Laboratory    string
	PatientName   string
	CollectedDate string // report-level date, if the header carried one
}

// Report-header field patterns, matched per line.
var (
	labRx       = regexp.MustCompile(`(?i)^laboratory(?: name)?[:\-]?\s*(.+)$`)
	patientRx   = regexp.MustCompile(`(?i)^patient(?: name)?[:\-]?\s*(.+)$`)
	collectedRx = regexp.MustCompile(`(?i)^collected(?: on)?[:\-]?\s*(.+)$`)
)

// Run extracts one candidate record per expected indicator from the OCR
// document. Absence of an indicator or of its numeric result yields a gap,
// not an error.
func Run(upload *models.PendingUpload, doc *ocr.Document) Outcome {
	lines := doc.Lines()
	tokens := ocr.Tokenize(lines)

	out := Outcome{}
	scanHeader(lines, &out)

	fallbackDate := out.CollectedDate
	if fallbackDate == "" {
		fallbackDate = uploadDate(upload)
	}
	patientID := upload.PatientID
	if patientID == "" {
		patientID = DerivePatientID(upload.UserID, out.PatientName, upload.CreatedAt)
	}
	version := Version(upload)

	for _, name := range upload.Indicators {
		rec, ok := locate(tokens, name)
		if !ok {
			out.Gaps = append(out.Gaps, name)
			continue
		}
		date := rec.date
		if date == "" {
			date = fallbackDate
		}
		out.Records = append(out.Records, models.IndicatorRecord{
			UserID:        upload.UserID,
			PatientID:     patientID,
			PatientName:   out.PatientName,
			Indicator:     Canonical(name),
			CollectedDate: date,
			Result:        rec.result,
			Units:         rec.units,
			LowerRange:    rec.lower,
			UpperRange:    rec.upper,
			Laboratory:    out.Laboratory,
			SourceKey:     upload.ObjectKey,
			Version:       version,
		})
	}
	return out
}

// scanHeader fills the report-level fields from the first line matching each
// pattern.
func scanHeader(lines []ocr.Line, out *Outcome) {
	for _, line := range lines {
		if out.Laboratory == "" {
			if m := labRx.FindStringSubmatch(line.Text); m != nil {
				out.Laboratory = trimValue(m[1])
			}
		}
		if out.PatientName == "" {
			if m := patientRx.FindStringSubmatch(line.Text); m != nil {
				out.PatientName = trimValue(m[1])
			}
		}
		if out.CollectedDate == "" {
			if m := collectedRx.FindStringSubmatch(line.Text); m != nil {
				if d, ok := parseLongDate(trimValue(m[1])); ok {
					out.CollectedDate = d
				}
			}
		}
		if out.Laboratory != "" && out.PatientName != "" && out.CollectedDate != "" {
			return
		}
	}
}

var wsRx = regexp.MustCompile(`\s+`)

func trimValue(s string) string {
	return wsRx.ReplaceAllString(strings.TrimSpace(s), " ")
}

// located holds the fields found in an indicator's window.
type located struct {
	result float64
	units  string
	lower  *float64
	upper  *float64
	date   string
}

// locate finds the indicator name in the token stream and scans a bounded
// window after it for the numeric result, optional unit, optional reference
// range, and optional date. The numeric result is required.
func locate(tokens []ocr.Token, name string) (located, bool) {
	words := splitName(name)
	if len(words) == 0 {
		return located{}, false
	}
	start, end := matchName(tokens, words)
	if start < 0 {
		return located{}, false
	}
	fields, ok := scanWindow(tokens, end)
	return fields, ok
}

func splitName(name string) []string {
	return strings.Fields(normName(name))
}

// matchName finds the first contiguous, case-insensitive occurrence of the
// name words in the token stream and returns its [start, end) bounds.
func matchName(tokens []ocr.Token, words []string) (int, int) {
	for i := 0; i+len(words) <= len(tokens); i++ {
		matched := true
		for j, w := range words {
			if normWord(tokens[i+j].Text) != w {
				matched = false
				break
			}
		}
		if matched {
			return i, i + len(words)
		}
	}
	return -1, -1
}

// scanWindow walks the tokens after a name match and picks out fields in
// reading order. The first standalone number is the result; a subsequent
// number pair joined by a dash or "to" is the range.
func scanWindow(tokens []ocr.Token, from int) (located, bool) {
	var fields located
	var haveResult bool
	if from >= len(tokens) {
		return fields, false
	}
	nameLine := tokens[from-1].Line

	for i := from; i < len(tokens) && i-from < windowTokens; i++ {
		if tokens[i].Line > nameLine+windowLines {
			break
		}
		tok := normWord(tokens[i].Text)
		if tok == "" || tok == "range" || tok == "range:" || tok == "ref" || tok == "reference" {
			continue
		}

		if fields.date == "" {
			if d, ok := parseDate(tok); ok {
				fields.date = d
				continue
			}
		}

		if fields.lower == nil {
			if lo, hi, ok := parseRangeToken(tok); ok {
				fields.lower, fields.upper = &lo, &hi
				continue
			}
			// "125 - 200" / "3.5 to 5.0" split across tokens
			if i+2 < len(tokens) && isNumber(tok) && rangeSeparators[normWord(tokens[i+1].Text)] {
				if hi, ok := parseNumber(normWord(tokens[i+2].Text)); ok {
					// only a range when the result is already known,
					// otherwise the first number is the result
					if haveResult {
						lo, _ := parseNumber(tok)
						fields.lower, fields.upper = &lo, &hi
						i += 2
						continue
					}
				}
			}
		}

		if !haveResult {
			if v, ok := parseNumber(tok); ok {
				fields.result = v
				haveResult = true
				continue
			}
		}

		// Units keep their source casing but shed any wrapping
		// punctuation, so "(mg/dL)" stores as "mg/dL".
		if u := trimPunct(tokens[i].Text); fields.units == "" && isUnit(u) {
			fields.units = u
		}
	}

	if !haveResult {
		return located{}, false
	}

	// Inverted bounds cannot be trusted; drop the range, keep the record.
	if fields.lower != nil && fields.upper != nil && *fields.lower > *fields.upper {
		fields.lower, fields.upper = nil, nil
	}
	return fields, true
}

// uploadDate is the calendar date of the upload itself, the fallback
// collected date when the report carries none.
func uploadDate(upload *models.PendingUpload) string {
	if t, err := time.Parse(time.RFC3339, upload.CreatedAt); err == nil {
		return t.UTC().Format("2006-01-02")
	}
	return time.Now().UTC().Format("2006-01-02")
}

// Version derives the record version for a pipeline write: the upload's
// creation time in unix millis, taken from its ULID. Deterministic per
// object, so re-extraction is idempotent; user edits mint wall-clock millis
// which are strictly newer.
func Version(upload *models.PendingUpload) int64 {
	if id, err := ulid.Parse(upload.UploadID); err == nil {
		return int64(id.Time())
	}
	if t, err := time.Parse(time.RFC3339, upload.CreatedAt); err == nil {
		return t.UnixMilli()
	}
	return 0
}

// DerivePatientID produces a stable patient identifier when the caller did
// not supply one, from the owning user, the extracted patient name, and the
// upload date.
func DerivePatientID(userID, patientName, uploadCreatedAt string) string {
	seed := userID + "|" + patientName + "|" + uploadCreatedAt
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}
