package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/hybridrag/core"
	"github.com/poiesic/hybridrag/search"
)

// explainMonitor prints each signal's scores as a search runs.
type explainMonitor struct {
	w      io.Writer
	titles []string
}

var _ search.SearchMonitor = (*explainMonitor)(nil)

func newExplainMonitor(w io.Writer, chunks []core.Chunk) *explainMonitor {
	titles := make([]string, len(chunks))
	for i, c := range chunks {
		titles[i] = c.Title
	}
	return &explainMonitor{w: w, titles: titles}
}

func (m *explainMonitor) Start(query string, cfg core.HybridConfig) {
	heading.Fprintf(m.w, "Query: %s\n", query)
	faint.Fprintf(m.w, "Weights: semantic=%v/%.2f keyword=%v/%.2f graph=%v/%.2f\n",
		cfg.UseSemantic, cfg.SemanticWeight,
		cfg.UseKeyword, cfg.KeywordWeight,
		cfg.UseKnowledgeGraph, cfg.KnowledgeGraphWeight)
}

func (m *explainMonitor) QueryEmbedded(cached bool) {
	if cached {
		faint.Fprintln(m.w, "Query embedding: cached")
		return
	}
	faint.Fprintln(m.w, "Query embedding: computed")
}

func (m *explainMonitor) AfterSemanticScores(scores []float64) { m.scores("Semantic", scores) }

func (m *explainMonitor) AfterKeywordScores(scores []float64) { m.scores("Keyword", scores) }

func (m *explainMonitor) AfterQueryEntityExtraction(entities []string) {
	if len(entities) == 0 {
		faint.Fprintln(m.w, "Query entities: none")
		return
	}
	faint.Fprintf(m.w, "Query entities: %s\n", strings.Join(entities, ", "))
}

func (m *explainMonitor) AfterGraphScores(scores []float64) { m.scores("Graph", scores) }

func (m *explainMonitor) Finish(results []core.ScoredChunk) {
	heading.Fprintf(m.w, "Fused top %d:\n", len(results))
}

// scores prints the non-zero scores of one signal.
func (m *explainMonitor) scores(signal string, scores []float64) {
	title.Fprintf(m.w, "%s scores:\n", signal)
	for i, s := range scores {
		if s == 0 {
			continue
		}
		name := fmt.Sprintf("#%d", i)
		if i < len(m.titles) {
			name = m.titles[i]
		}
		fmt.Fprintf(m.w, "  %.4f  %s\n", s, name)
	}
}
