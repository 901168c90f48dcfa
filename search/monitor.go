package search

import "github.com/poiesic/hybridrag/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to inspect per-signal scores before fusion.
// Score slices are indexed by chunk position and must not be retained.
type SearchMonitor interface {
	Start(query string, cfg core.HybridConfig)
	QueryEmbedded(cached bool)
	AfterSemanticScores(scores []float64)
	AfterKeywordScores(scores []float64)
	AfterQueryEntityExtraction(entities []string)
	AfterGraphScores(scores []float64)
	Finish(results []core.ScoredChunk)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ core.HybridConfig)   {}
func (n *noopMonitor) QueryEmbedded(_ bool)                  {}
func (n *noopMonitor) AfterSemanticScores(_ []float64)       {}
func (n *noopMonitor) AfterKeywordScores(_ []float64)        {}
func (n *noopMonitor) AfterQueryEntityExtraction(_ []string) {}
func (n *noopMonitor) AfterGraphScores(_ []float64)          {}
func (n *noopMonitor) Finish(_ []core.ScoredChunk)           {}
