package chunk

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
	"time"

	domchunk "github.com/kailas-cloud/docchat/internal/domain/chunk"
	"github.com/kailas-cloud/docchat/internal/domain/retrieval"
)

// Hash field names of a chunk record.
const (
	fieldVector          = "vector"
	fieldPDFName         = "pdf_name"
	fieldChunkIndex      = "chunk_index"
	fieldText            = "text"
	fieldTotalChars      = "total_chars"
	fieldTotalWords      = "total_words"
	fieldTotalParagraphs = "total_paragraphs"
	fieldTimestamp       = "timestamp"
)

// returnFields are fetched with every KNN hit. The vector itself is never returned.
var returnFields = []string{fieldText, fieldPDFName, fieldChunkIndex}

// buildHashFields converts a chunk record into a flat map for HSET.
func buildHashFields(r *domchunk.Record) map[string]string {
	st := r.Stats()
	return map[string]string{
		fieldVector:          vectorToBytes(r.Vector()),
		fieldPDFName:         r.PDFName(),
		fieldChunkIndex:      strconv.Itoa(r.Index()),
		fieldText:            r.Text(),
		fieldTotalChars:      strconv.Itoa(st.TotalChars),
		fieldTotalWords:      strconv.Itoa(st.TotalWords),
		fieldTotalParagraphs: strconv.Itoa(st.TotalParagraphs),
		fieldTimestamp:       r.Timestamp().Format(time.RFC3339),
	}
}

// parseMatch builds a retrieval match from a search hit.
// Missing text becomes empty; a malformed chunk_index becomes 0.
func parseMatch(key, prefix string, score float64, fields map[string]string) retrieval.Match {
	idx, _ := strconv.Atoi(fields[fieldChunkIndex])
	return retrieval.Match{
		ID:         strings.TrimPrefix(key, prefix),
		Text:       fields[fieldText],
		PDFName:    fields[fieldPDFName],
		ChunkIndex: idx,
		Score:      score,
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
