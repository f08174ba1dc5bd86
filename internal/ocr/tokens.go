// Package ocr invokes the OCR engine and models its output as a typed token
// stream with geometry and confidence, replacing ad hoc string scanning
// downstream.
package ocr

import (
	"sort"
	"strings"
)

// Document is the intermediate OCR output persisted between the OCR and
// field-extraction stages. It captures the engine output verbatim enough to
// reprocess without re-invoking the engine.
type Document struct {
	Blocks []Block `json:"blocks"`
}

// Block is one recognized text block with normalized page geometry
// (fractions of page size, origin top-left) and a 0-100 confidence score.
type Block struct {
	Type       string  `json:"type"` // LINE or WORD
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Top        float64 `json:"top"`
	Left       float64 `json:"left"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// Line is one text line in reading order.
type Line struct {
	Text       string
	Confidence float64
	Top        float64
	Left       float64
}

// Token is one whitespace-delimited token of a line, addressed by the line
// it came from so window bounds can span a fixed number of lines.
type Token struct {
	Text string
	Line int // index into the ordered line slice
}

// lineTolerance treats blocks whose vertical centers differ by less than
// this fraction of the page as the same visual row.
const lineTolerance = 0.008

// Lines returns the document's LINE blocks sorted into reading order:
// top-to-bottom, then left-to-right within a row.
func (d *Document) Lines() []Line {
	lines := make([]Line, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		if b.Type != "LINE" || strings.TrimSpace(b.Text) == "" {
			continue
		}
		lines = append(lines, Line{
			Text:       strings.TrimSpace(b.Text),
			Confidence: b.Confidence,
			Top:        b.Top + b.Height/2,
			Left:       b.Left,
		})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if diff := lines[i].Top - lines[j].Top; diff < -lineTolerance || diff > lineTolerance {
			return lines[i].Top < lines[j].Top
		}
		return lines[i].Left < lines[j].Left
	})
	return lines
}

// Tokenize splits ordered lines into a flat token stream in reading order.
func Tokenize(lines []Line) []Token {
	var tokens []Token
	for i, line := range lines {
		for _, f := range strings.Fields(line.Text) {
			tokens = append(tokens, Token{Text: f, Line: i})
		}
	}
	return tokens
}
