package core

// IndexSnapshot is the serializable state of a hybrid index.
// Slices are positionally aligned with Chunks where noted.
type IndexSnapshot struct {
	Chunks   []Chunk
	Vectors  [][]float32 // aligned with Chunks
	Tokens   [][]string  // aligned with Chunks
	Nodes    []GraphNode
	Edges    []GraphEdge
	Postings []EntityPosting
	Cache    []CacheEntry // oldest first
}

// GraphNode is a knowledge graph entity.
type GraphNode struct {
	Name  string
	Label string
}

// GraphEdge is an undirected co-occurrence edge.
type GraphEdge struct {
	From   string
	To     string
	Weight float64
}

// EntityPosting maps an entity to the chunk positions it occurs in.
type EntityPosting struct {
	Entity    string
	Positions []int
}

// CacheEntry is a cached query embedding.
type CacheEntry struct {
	Query  string
	Vector []float32
}
