package text

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Separators are tried in order: paragraphs, lines, sentence ends, words, then a hard cut.
var Separators = []string{"\n\n", "\n", ".", "!", "?", " ", ""}

// Chunker splits cleaned text into ordered, overlapping segments.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

// NewChunker creates a recursive character splitter; lengths are counted in runes.
func NewChunker(size, overlap int) *Chunker {
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(Separators),
		),
	}
}

// Split returns the chunks of s in order of appearance. Blank input yields none.
func (c *Chunker) Split(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	chunks, err := c.splitter.SplitText(s)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}

	out := chunks[:0]
	for _, ch := range chunks {
		if strings.TrimSpace(ch) != "" {
			out = append(out, ch)
		}
	}
	return out, nil
}
