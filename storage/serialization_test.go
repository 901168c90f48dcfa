package storage

import (
	"testing"

	"github.com/poiesic/hybridrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *core.IndexSnapshot {
	return &core.IndexSnapshot{
		Chunks: []core.Chunk{
			{Title: "paris.txt - Chunk 1", Content: "Paris is the capital of France.", Summary: "Chunk 1 of document paris.txt"},
			{Title: "paris.txt - Chunk 2", Content: "The Eiffel Tower is in Paris.", Summary: "Chunk 2 of document paris.txt"},
		},
		Vectors: [][]float32{{0.1, -0.2, 0.3}, {1, 0, 0}},
		Tokens:  [][]string{{"paris", "is", "the", "capital"}, {"the", "eiffel", "tower"}},
		Nodes: []core.GraphNode{
			{Name: "paris", Label: "GPE"},
			{Name: "france", Label: "GPE"},
			{Name: "eiffel tower", Label: "FAC"},
		},
		Edges: []core.GraphEdge{
			{From: "france", To: "paris", Weight: 1},
			{From: "eiffel tower", To: "paris", Weight: 2.5},
		},
		Postings: []core.EntityPosting{
			{Entity: "paris", Positions: []int{0, 1}},
			{Entity: "france", Positions: []int{0}},
		},
		Cache: []core.CacheEntry{{Query: "where is the tower", Vector: []float32{0, 1, 0}}},
	}
}

func TestMarshalUnmarshalSnapshot(t *testing.T) {
	tests := []struct {
		name string
		snap *core.IndexSnapshot
	}{
		{"full snapshot", sampleSnapshot()},
		{"unicode content", &core.IndexSnapshot{
			Chunks:   []core.Chunk{{Title: "café.txt - Chunk 1", Content: "Zürich und Genève"}},
			Vectors:  [][]float32{{0.5}},
			Tokens:   [][]string{{"zürich", "und", "genève"}},
			Nodes:    []core.GraphNode{},
			Edges:    []core.GraphEdge{},
			Postings: []core.EntityPosting{},
			Cache:    []core.CacheEntry{},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalSnapshot(tt.snap)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalSnapshot(data)
			require.NoError(t, err)
			assert.Equal(t, tt.snap, decoded)
		})
	}
}

func TestUnmarshalSnapshot_Invalid(t *testing.T) {
	valid := MarshalSnapshot(sampleSnapshot())

	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"truncated", valid[:len(valid)/2]},
		{"trailing bytes", append(append([]byte{}, valid...), 0x01)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalSnapshot(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestUnmarshalSnapshot_UnknownVersion(t *testing.T) {
	w := &writer{}
	w.int(SnapshotVersion + 1)
	_, err := UnmarshalSnapshot(w.buf)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestValidateKey(t *testing.T) {
	assert.ErrorIs(t, ValidateKey(""), ErrInvalidKey)
	assert.NoError(t, ValidateKey("index:default"))
}
