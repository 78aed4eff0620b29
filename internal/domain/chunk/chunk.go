package chunk

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ID builds the deterministic record identifier for a chunk of a document.
func ID(pdfName string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", pdfName, index)
}

// Stats describes the whole cleaned text of a document.
type Stats struct {
	TotalChars      int `json:"total_chars"`
	TotalWords      int `json:"total_words"`
	TotalParagraphs int `json:"total_paragraphs"`
}

// ComputeStats counts characters, whitespace-separated words and
// blank-line-separated paragraphs of text.
func ComputeStats(text string) Stats {
	return Stats{
		TotalChars:      utf8.RuneCountInString(text),
		TotalWords:      len(strings.Fields(text)),
		TotalParagraphs: len(strings.Split(text, "\n\n")),
	}
}

// Record is one chunk of a document ready for the vector index.
type Record struct {
	pdfName   string
	index     int
	text      string
	vector    []float32
	stats     Stats
	timestamp time.Time
}

// NewRecord creates a Record. The vector must already be normalized.
func NewRecord(pdfName string, index int, text string, vector []float32, stats Stats, ts time.Time) Record {
	return Record{pdfName: pdfName, index: index, text: text, vector: vector, stats: stats, timestamp: ts.UTC()}
}

// ID returns "{pdf_name}_chunk_{index}".
func (r Record) ID() string { return ID(r.pdfName, r.index) }

// PDFName returns the source document name.
func (r Record) PDFName() string { return r.pdfName }

// Index returns the chunk position within the document.
func (r Record) Index() int { return r.index }

// Text returns the chunk text.
func (r Record) Text() string { return r.text }

// Vector returns the unit-length embedding.
func (r Record) Vector() []float32 { return r.vector }

// Stats returns the whole-document statistics stamped on every chunk.
func (r Record) Stats() Stats { return r.stats }

// Timestamp returns the indexing time.
func (r Record) Timestamp() time.Time { return r.timestamp }
