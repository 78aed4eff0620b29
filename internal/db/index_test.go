package db

import "testing"

func TestNewIndex_ChunkSchema(t *testing.T) {
	idx := NewIndex("docchat:chunk:idx", "docchat:chunk:").
		Tag("pdf_name").
		Numeric("chunk_index").
		VectorHNSW("vector", 1536, DistanceCosine, 16, 200)

	if err := idx.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(idx.Fields) != 3 {
		t.Fatalf("fields = %d, want 3", len(idx.Fields))
	}
	v := idx.Fields[2]
	if v.Type != IndexFieldVector || v.Dim != 1536 || v.Distance != DistanceCosine {
		t.Errorf("unexpected vector field: %+v", v)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		idx  *IndexDefinition
	}{
		{"empty name", NewIndex("", "p:").Tag("a")},
		{"bad name", NewIndex("bad name", "p:").Tag("a")},
		{"no fields", NewIndex("idx", "p:")},
		{"duplicate", NewIndex("idx", "p:").Tag("a").Numeric("a")},
		{"zero dim", NewIndex("idx", "p:").VectorHNSW("v", 0, DistanceCosine, 0, 0)},
		{"empty field", NewIndex("idx", "p:").Tag("")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.idx.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	cases := map[string]bool{
		"docchat:chunk:idx": true,
		"a-b_c":             true,
		"":                  false,
		"a b":               false,
		"a/b":               false,
	}
	for in, want := range cases {
		if got := IsValidIdentifier(in); got != want {
			t.Errorf("IsValidIdentifier(%q) = %v, want %v", in, got, want)
		}
	}
}
