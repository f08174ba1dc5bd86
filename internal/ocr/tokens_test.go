package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(text string, top, left float64) Block {
	return Block{Type: "LINE", Text: text, Top: top, Left: left, Height: 0.02}
}

func TestLinesSortIntoReadingOrder(t *testing.T) {
	doc := &Document{Blocks: []Block{
		line("third", 0.5, 0.1),
		line("first", 0.1, 0.1),
		line("second", 0.3, 0.1),
	}}

	lines := doc.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "first", lines[0].Text)
	assert.Equal(t, "second", lines[1].Text)
	assert.Equal(t, "third", lines[2].Text)
}

func TestLinesSameRowOrderedLeftToRight(t *testing.T) {
	// Vertical centers differ by less than the row tolerance, so the two
	// blocks belong to one visual row and sort by left edge.
	doc := &Document{Blocks: []Block{
		line("right", 0.102, 0.6),
		line("left", 0.100, 0.1),
	}}

	lines := doc.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "left", lines[0].Text)
	assert.Equal(t, "right", lines[1].Text)
}

func TestLinesSkipsWordsAndBlankText(t *testing.T) {
	doc := &Document{Blocks: []Block{
		{Type: "WORD", Text: "Glucose", Top: 0.1},
		line("   ", 0.2, 0.1),
		line("Glucose 92 mg/dL", 0.3, 0.1),
	}}

	lines := doc.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "Glucose 92 mg/dL", lines[0].Text)
}

func TestTokenizeAddressesTokensByLine(t *testing.T) {
	tokens := Tokenize([]Line{
		{Text: "Glucose 92"},
		{Text: "mg/dL"},
	})

	require.Len(t, tokens, 3)
	assert.Equal(t, Token{Text: "Glucose", Line: 0}, tokens[0])
	assert.Equal(t, Token{Text: "92", Line: 0}, tokens[1])
	assert.Equal(t, Token{Text: "mg/dL", Line: 1}, tokens[2])
}
