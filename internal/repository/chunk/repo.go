package chunk

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/docchat/internal/db"
	domchunk "github.com/kailas-cloud/docchat/internal/domain/chunk"
	"github.com/kailas-cloud/docchat/internal/domain/retrieval"
)

// store is the consumer interface for chunk records (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, keys ...string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// HNSWConfig holds the vector graph build parameters.
type HNSWConfig struct {
	M              int
	EFConstruction int
}

// Repo stores chunk records as hashes under one FT index.
type Repo struct {
	store     store
	keyPrefix string // "{prefix}chunk:"
	indexName string // "{prefix}chunk:idx"
	docPrefix string // "{prefix}doc:", holds each document's chunk count
	dim       int
	hnsw      HNSWConfig
	prune     bool
}

// Option configures a Repo.
type Option func(*Repo)

// WithStalePruning makes Replace delete chunk ids beyond a document's new chunk count.
// Off by default: a shrinking re-ingest then leaves the old tail retrievable.
func WithStalePruning() Option {
	return func(r *Repo) { r.prune = true }
}

// New creates a chunk repository. prefix is the global key prefix, e.g. "docchat:".
func New(s store, prefix string, dim int, hnsw HNSWConfig, opts ...Option) *Repo {
	r := &Repo{
		store:     s,
		keyPrefix: prefix + "chunk:",
		indexName: prefix + "chunk:idx",
		docPrefix: prefix + "doc:",
		dim:       dim,
		hnsw:      hnsw,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// IndexName returns the FT index name.
func (r *Repo) IndexName() string { return r.indexName }

// EnsureIndex creates the chunk index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.indexName, err)
	}
	if exists {
		return nil
	}

	def := db.NewIndex(r.indexName, r.keyPrefix).
		Tag(fieldPDFName).
		Numeric(fieldChunkIndex).
		VectorHNSW(fieldVector, r.dim, db.DistanceCosine, r.hnsw.M, r.hnsw.EFConstruction)

	if err := r.store.CreateIndex(ctx, def); err != nil {
		// Lost a race with another replica.
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", r.indexName, err)
	}
	return nil
}

// Upsert writes records in one pipeline. Existing records with the same id are overwritten.
func (r *Repo) Upsert(ctx context.Context, records []domchunk.Record) error {
	if len(records) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(records))
	for i := range records {
		items[i] = db.HashSetItem{
			Key:    r.key(records[i].ID()),
			Fields: buildHashFields(&records[i]),
		}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset %d chunks: %w", len(records), err)
	}
	return nil
}

// Delete removes chunk records by id.
func (r *Repo) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("del %d chunks: %w", len(ids), err)
	}
	return nil
}

// Replace writes a document's records and remembers their count. With stale
// pruning enabled it also removes chunks left over from a previous, longer
// version of the document. records must all belong to pdfName.
func (r *Repo) Replace(ctx context.Context, pdfName string, records []domchunk.Record) error {
	prev := 0
	if r.prune {
		n, err := r.chunkCount(ctx, pdfName)
		if err != nil {
			return err
		}
		prev = n
	}

	if err := r.Upsert(ctx, records); err != nil {
		return err
	}

	if prev > len(records) {
		stale := make([]string, 0, prev-len(records))
		for i := len(records); i < prev; i++ {
			stale = append(stale, domchunk.ID(pdfName, i))
		}
		if err := r.Delete(ctx, stale...); err != nil {
			return fmt.Errorf("prune %s: %w", pdfName, err)
		}
	}

	count := []byte(strconv.Itoa(len(records)))
	if err := r.store.Set(ctx, r.docPrefix+pdfName, count, 0); err != nil {
		return fmt.Errorf("record chunk count of %s: %w", pdfName, err)
	}
	return nil
}

// chunkCount returns the number of chunks last written for pdfName, 0 if unknown.
func (r *Repo) chunkCount(ctx context.Context, pdfName string) (int, error) {
	data, err := r.store.Get(ctx, r.docPrefix+pdfName)
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read chunk count of %s: %w", pdfName, err)
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, nil //nolint:nilerr // a corrupt counter only disables pruning
	}
	return n, nil
}

// Query returns up to k nearest chunks to vec, most similar first.
func (r *Repo) Query(ctx context.Context, vec []float32, k int) ([]retrieval.Match, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName,
		Field:        fieldVector,
		Vector:       vec,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("knn search %s: %w", r.indexName, err)
	}
	if res == nil {
		return nil, nil
	}

	matches := make([]retrieval.Match, 0, len(res.Entries))
	for _, e := range res.Entries {
		matches = append(matches, parseMatch(e.Key, r.keyPrefix, e.Score, e.Fields))
	}
	return matches, nil
}

func (r *Repo) key(id string) string {
	return r.keyPrefix + id
}
