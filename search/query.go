// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package search

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/hybridrag/core"
)

// Search scores every chunk against query with the signals enabled in cfg
// and returns the k best, highest score first.
func (ix *Index) Search(ctx context.Context, query string, cfg core.HybridConfig, k int) ([]core.ScoredChunk, error) {
	return ix.SearchWithMonitor(ctx, query, cfg, k, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
// A nil monitor is allowed.
func (ix *Index) SearchWithMonitor(ctx context.Context, query string, cfg core.HybridConfig, k int, monitor SearchMonitor) ([]core.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", core.ErrInvalidArgument)
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", core.ErrInvalidArgument, k)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}

	state := ix.current()
	n := len(state.chunks)
	if n == 0 {
		return nil, core.ErrIndexNotReady
	}

	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query, cfg)

	fused := make([]float64, n)
	var weightSum float64

	if cfg.UseSemantic {
		vector, err := ix.queryVector(ctx, query, monitor)
		if err != nil {
			return nil, err
		}
		semantic, err := state.semanticScores(vector)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrRetrievalFailed, err)
		}
		monitor.AfterSemanticScores(semantic)
		addWeighted(fused, semantic, cfg.SemanticWeight)
		weightSum += cfg.SemanticWeight
	}

	if cfg.UseKeyword {
		keyword := state.keywords.scores(tokenize(query))
		l2Normalize(keyword)
		monitor.AfterKeywordScores(keyword)
		addWeighted(fused, keyword, cfg.KeywordWeight)
		weightSum += cfg.KeywordWeight
	}

	if cfg.UseKnowledgeGraph {
		entities, err := ix.queryEntities(ctx, query)
		if err != nil {
			return nil, err
		}
		monitor.AfterQueryEntityExtraction(entities)
		graph := state.graph.scores(entities, n)
		l2Normalize(graph)
		monitor.AfterGraphScores(graph)
		addWeighted(fused, graph, cfg.KnowledgeGraphWeight)
		weightSum += cfg.KnowledgeGraphWeight
	}

	if weightSum > 0 {
		for i := range fused {
			fused[i] /= weightSum
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(fused[b], fused[a])
	})

	results := make([]core.ScoredChunk, 0, min(k, n))
	for _, pos := range order[:min(k, n)] {
		results = append(results, core.ScoredChunk{
			Chunk:    state.chunks[pos],
			Position: pos,
			Score:    fused[pos],
		})
	}

	monitor.Finish(results)
	return results, nil
}

// queryVector returns the cached embedding for query, embedding and caching it on a miss.
func (ix *Index) queryVector(ctx context.Context, query string, monitor SearchMonitor) ([]float32, error) {
	if vector, ok := ix.cache.get(query); ok {
		monitor.QueryEmbedded(true)
		return vector, nil
	}
	vector, err := ix.embedder.EmbedText(ctx, query)
	if err != nil {
		ix.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, fmt.Errorf("%w: embedding query: %w", core.ErrRetrievalFailed, err)
	}
	ix.cache.put(query, vector)
	monitor.QueryEmbedded(false)
	return vector, nil
}

// queryEntities returns the distinct normalized entity names in query, in order of appearance.
func (ix *Index) queryEntities(ctx context.Context, query string) ([]string, error) {
	analysis, err := ix.recognizer.Recognize(ctx, query)
	if err != nil {
		ix.logger.Error("error extracting entities from query", "err", err)
		return nil, fmt.Errorf("%w: query entity recognition: %w", core.ErrRetrievalFailed, err)
	}
	var names []string
	for _, ent := range analysis.Entities() {
		name := normalizeEntity(ent.Text)
		if name != "" && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names, nil
}
