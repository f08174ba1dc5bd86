package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// knownUnits is the vocabulary of unit spellings seen on lab reports,
// lowercased. Tokens not in the vocabulary can still qualify through the
// letters/letters pattern below.
var knownUnits = map[string]bool{
	"%":        true,
	"fl":       true,
	"pg":       true,
	"mg/dl":    true,
	"mcg/dl":   true,
	"ug/dl":    true,
	"g/dl":     true,
	"g/l":      true,
	"mg/l":     true,
	"mmol/l":   true,
	"umol/l":   true,
	"µmol/l":   true,
	"nmol/l":   true,
	"pmol/l":   true,
	"meq/l":    true,
	"iu/l":     true,
	"u/l":      true,
	"iu/ml":    true,
	"miu/l":    true,
	"uiu/ml":   true,
	"ng/ml":    true,
	"ng/dl":    true,
	"pg/ml":    true,
	"k/ul":     true,
	"m/ul":     true,
	"thou/ul":  true,
	"mill/ul":  true,
	"cells/ul": true,
	"x10^9/l":  true,
	"x10^12/l": true,
	"mm/hr":    true,
}

// unitShapeRx matches unit-like tokens the vocabulary missed, e.g. "mol/dL".
var unitShapeRx = regexp.MustCompile(`^[a-zA-Zµ]+/[a-zA-Z]+$`)

func isUnit(tok string) bool {
	lower := strings.ToLower(tok)
	return knownUnits[lower] || unitShapeRx.MatchString(tok)
}

const punctCutset = "():;,.*\"'"

// trimPunct strips surrounding punctuation from a token. Inner characters
// ('/','-','%') are kept.
func trimPunct(tok string) string {
	return strings.Trim(tok, punctCutset)
}

// normWord lowercases a punctuation-trimmed token for matching.
func normWord(tok string) string {
	return strings.ToLower(trimPunct(tok))
}

// normName collapses an indicator name to its whitespace-normalized,
// lowercased matching form.
func normName(name string) string {
	words := strings.Fields(strings.ToLower(name))
	return strings.Join(words, " ")
}

// Canonical returns the stored casing of an indicator name: whitespace
// collapsed, words title-cased, fully uppercase source words (acronyms like
// LDL, TSH) preserved.
func Canonical(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		if w == strings.ToUpper(w) && len(w) > 1 {
			continue
		}
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
