package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var rangeTokenRx = regexp.MustCompile(`^(\d+(?:\.\d+)?)[-–—](\d+(?:\.\d+)?)$`)

var rangeSeparators = map[string]bool{"-": true, "–": true, "—": true, "to": true}

// parseNumber parses a token as a finite number, tolerating grouping commas.
func parseNumber(tok string) (float64, bool) {
	cleaned := strings.ReplaceAll(tok, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func isNumber(tok string) bool {
	_, ok := parseNumber(tok)
	return ok
}

// parseRangeToken parses a single "lower-upper" token, with or without a
// leading "range:" marker.
func parseRangeToken(tok string) (lower, upper float64, ok bool) {
	lowered := strings.TrimPrefix(strings.ToLower(tok), "range:")
	m := rangeTokenRx.FindStringSubmatch(lowered)
	if m == nil {
		return 0, 0, false
	}
	lo, okLo := parseNumber(m[1])
	hi, okHi := parseNumber(m[2])
	if !okLo || !okHi {
		return 0, 0, false
	}
	return lo, hi, true
}

// dateFormats are attempted in order against single-token candidates.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02.01.2006",
}

// longDateFormats additionally cover the spelled-out dates seen in report
// headers ("Collected On: Jan 21, 2025").
var longDateFormats = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// parseDate parses a token as a calendar date, returned in the canonical
// YYYY-MM-DD form.
func parseDate(tok string) (string, bool) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, tok); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// parseLongDate parses a free-form date phrase.
func parseLongDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if d, ok := parseDate(s); ok {
		return d, true
	}
	for _, layout := range longDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}
