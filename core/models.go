package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Chunk is the atomic unit of indexing and retrieval.
// Chunks are immutable once indexed and are identified by their position in the index.
type Chunk struct {
	Title   string
	Content string
	Summary string
}

// ID returns the content fingerprint of the chunk.
func (c Chunk) ID() ID {
	return IDFromContent(c.Content)
}

// ScoredChunk is a search hit carrying the chunk and its fused score.
type ScoredChunk struct {
	Chunk    Chunk
	Position int
	Score    float64
}

// SubQueryKind classifies a sub-query produced by decomposition.
type SubQueryKind string

const (
	SubQueryContext      SubQueryKind = "context"
	SubQueryDetail       SubQueryKind = "detail"
	SubQueryVerification SubQueryKind = "verification"
)

// ParseSubQueryKind maps free text onto a SubQueryKind.
func ParseSubQueryKind(s string) (SubQueryKind, bool) {
	switch SubQueryKind(strings.ToLower(strings.TrimSpace(s))) {
	case SubQueryContext:
		return SubQueryContext, true
	case SubQueryDetail:
		return SubQueryDetail, true
	case SubQueryVerification:
		return SubQueryVerification, true
	}
	return "", false
}

const (
	MinImportance = 1
	MaxImportance = 5
)

// SubQuery is an ephemeral query derived from a user question.
type SubQuery struct {
	Text       string
	Kind       SubQueryKind
	Importance int // 1 (low) to 5 (high)
}

// Role tags a conversational turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in conversational memory.
type Turn struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// Source identifies a chunk used to ground an answer.
type Source struct {
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// Answer is the result of one question-answering turn.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	// Queries lists the search queries issued for this turn, in execution order.
	Queries []string `json:"queries,omitempty"`
}

// NoInformationAnswer is returned when retrieval finds nothing to ground an answer on.
const NoInformationAnswer = "I couldn't find any relevant information to answer your question."
