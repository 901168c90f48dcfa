package search

import (
	"slices"

	"github.com/poiesic/hybridrag/ai"
	"github.com/poiesic/hybridrag/core"
)

// corpus is an immutable index state. Writers build a new corpus and swap it in.
type corpus struct {
	chunks   []core.Chunk
	vectors  [][]float32
	tokens   [][]string
	keywords *keywordIndex
	graph    *knowledgeGraph
}

func emptyCorpus() *corpus {
	return &corpus{
		keywords: newKeywordIndex(nil),
		graph:    newKnowledgeGraph(),
	}
}

// extend returns a new corpus holding c's chunks followed by chunks.
// vectors and analyses are aligned with chunks.
func (c *corpus) extend(chunks []core.Chunk, vectors [][]float32, analyses []*ai.Analysis) *corpus {
	offset := len(c.chunks)
	next := &corpus{
		chunks:  append(slices.Clip(c.chunks), chunks...),
		vectors: append(slices.Clip(c.vectors), vectors...),
		tokens:  slices.Clip(c.tokens),
		graph:   c.graph.clone(),
	}
	for i, chunk := range chunks {
		next.tokens = append(next.tokens, tokenize(chunk.Content))
		next.graph.addChunk(offset+i, analyses[i])
	}
	next.keywords = newKeywordIndex(next.tokens)
	return next
}

// withVectors returns a copy of c with vectors replaced. Keyword and graph
// state are shared since they do not depend on embeddings.
func (c *corpus) withVectors(vectors [][]float32) *corpus {
	return &corpus{
		chunks:   c.chunks,
		vectors:  vectors,
		tokens:   c.tokens,
		keywords: c.keywords,
		graph:    c.graph,
	}
}

func (c *corpus) semanticScores(query []float32) ([]float64, error) {
	out := make([]float64, len(c.vectors))
	for i, v := range c.vectors {
		s, err := cosine(query, v)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
