// Package validate checks upload requests before any credential is issued.
package validate

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/healthfolio/labtrends-backend/internal/fault"
)

// acceptedTypes are the image content types the OCR engine can read.
var acceptedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

var acceptedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

var indicatorRx = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9 %/\-\(\)\.]{0,63}$`)

// ContentType checks that the declared content type is an accepted image type.
func ContentType(ct string) error {
	if !acceptedTypes[strings.TrimSpace(strings.ToLower(ct))] {
		return fault.Newf(fault.InvalidRequest, "unsupported content type %q", ct)
	}
	return nil
}

// Filename checks that the filename carries an accepted image extension.
func Filename(fn string) error {
	if !acceptedExts[strings.ToLower(filepath.Ext(fn))] {
		return fault.New(fault.InvalidRequest, "only jpg and png files allowed")
	}
	return nil
}

// Indicators checks that 1..20 expected indicator names were supplied and
// each is plausibly an indicator name.
func Indicators(names []string) error {
	if len(names) == 0 {
		return fault.New(fault.InvalidRequest, "at least one indicator required")
	}
	if len(names) > 20 {
		return fault.New(fault.InvalidRequest, "too many indicators (max 20)")
	}
	for _, n := range names {
		if !indicatorRx.MatchString(strings.TrimSpace(n)) {
			return fault.Newf(fault.InvalidRequest, "invalid indicator name %q", n)
		}
	}
	return nil
}

// PatientID checks an optional caller-supplied patient identifier.
func PatientID(id string) error {
	if id == "" {
		return nil // derived server-side when absent
	}
	if len(id) > 64 || strings.ContainsAny(id, "#/ \t") {
		return fault.New(fault.InvalidRequest, "invalid patient id")
	}
	return nil
}
