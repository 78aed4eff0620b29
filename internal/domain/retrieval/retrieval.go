// Package retrieval holds vector search hits and the relevance rule that
// decides which of them ground a reply.
package retrieval

// Match is a chunk returned by the vector index.
type Match struct {
	ID         string
	Text       string
	PDFName    string
	ChunkIndex int
	Score      float64 // cosine similarity in [-1, 1]
}

// Relevance maps a cosine similarity from [-1, 1] onto [0, 1].
func Relevance(score float64) float64 {
	return (1 + score) / 2
}

// Relevance returns the normalized score of m.
func (m Match) Relevance() float64 { return Relevance(m.Score) }

// Source attributes a reply to a chunk. RelevanceScore carries the raw similarity.
type Source struct {
	PDFName        string  `json:"pdf_name"`
	ChunkIndex     int     `json:"chunk_index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Retain keeps matches whose relevance is at least minRelevance, in search order.
func Retain(matches []Match, minRelevance float64) ([]Match, []Source) {
	var (
		kept    []Match
		sources []Source
	)
	for _, m := range matches {
		if m.Relevance() < minRelevance {
			continue
		}
		kept = append(kept, m)
		sources = append(sources, Source{PDFName: m.PDFName, ChunkIndex: m.ChunkIndex, RelevanceScore: m.Score})
	}
	return kept, sources
}
