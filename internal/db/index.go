package db

import (
	"errors"
	"fmt"
)

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

// Supported distance metrics.
const (
	DistanceL2     DistanceMetric = "L2"
	DistanceIP     DistanceMetric = "IP"
	DistanceCosine DistanceMetric = "COSINE"
)

// IndexFieldType enumerates the FT schema field types the service uses.
type IndexFieldType int

const (
	// IndexFieldNumeric is a numeric field.
	IndexFieldNumeric IndexFieldType = iota
	// IndexFieldTag is an exact-match tag field.
	IndexFieldTag
	// IndexFieldVector is an HNSW FLOAT32 vector field.
	IndexFieldVector
)

// IndexField describes a single field in an FT index schema.
type IndexField struct {
	Name string
	Type IndexFieldType

	// VECTOR options
	Dim            int
	Distance       DistanceMetric
	M              int // max edges per node, 0 = server default
	EFConstruction int // build-time candidate list size, 0 = server default
}

// IndexDefinition is an FT index over HASH keys sharing a prefix.
type IndexDefinition struct {
	Name   string
	Prefix string
	Fields []IndexField
}

// NewIndex starts an index definition over HASH keys with the given prefix.
func NewIndex(name, prefix string) *IndexDefinition {
	return &IndexDefinition{Name: name, Prefix: prefix}
}

// Tag appends a TAG field.
func (idx *IndexDefinition) Tag(name string) *IndexDefinition {
	idx.Fields = append(idx.Fields, IndexField{Name: name, Type: IndexFieldTag})
	return idx
}

// Numeric appends a NUMERIC field.
func (idx *IndexDefinition) Numeric(name string) *IndexDefinition {
	idx.Fields = append(idx.Fields, IndexField{Name: name, Type: IndexFieldNumeric})
	return idx
}

// VectorHNSW appends an HNSW vector field.
func (idx *IndexDefinition) VectorHNSW(name string, dim int, distance DistanceMetric, m, ef int) *IndexDefinition {
	idx.Fields = append(idx.Fields, IndexField{
		Name:           name,
		Type:           IndexFieldVector,
		Dim:            dim,
		Distance:       distance,
		M:              m,
		EFConstruction: ef,
	})
	return idx
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return fmt.Errorf("index name %q contains invalid characters", idx.Name)
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field name is required at index %d", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field name: %s", f.Name)
		}
		seen[f.Name] = true

		if f.Type == IndexFieldVector && f.Dim <= 0 {
			return fmt.Errorf("vector field %s requires positive DIM", f.Name)
		}
	}
	return nil
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isAlpha && !isDigit && r != '_' && r != ':' && r != '-' {
			return false
		}
	}
	return true
}
