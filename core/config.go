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


package core

import (
	"fmt"
	"math"
)

// WeightTolerance is the allowed deviation of the enabled weight sum from 1.0.
const WeightTolerance = 1e-3

// HybridConfig selects and weights the relevance signals used by search.
type HybridConfig struct {
	UseSemantic          bool    `toml:"use_semantic" json:"use_semantic"`
	UseKeyword           bool    `toml:"use_keyword" json:"use_keyword"`
	UseKnowledgeGraph    bool    `toml:"use_knowledge_graph" json:"use_knowledge_graph"`
	SemanticWeight       float64 `toml:"semantic_weight" json:"semantic_weight"`
	KeywordWeight        float64 `toml:"keyword_weight" json:"keyword_weight"`
	KnowledgeGraphWeight float64 `toml:"knowledge_graph_weight" json:"knowledge_graph_weight"`
}

// DefaultHybridConfig enables all three signals weighted 0.4/0.3/0.3.
func DefaultHybridConfig() HybridConfig {
	return HybridConfig{
		UseSemantic:          true,
		UseKeyword:           true,
		UseKnowledgeGraph:    true,
		SemanticWeight:       0.4,
		KeywordWeight:        0.3,
		KnowledgeGraphWeight: 0.3,
	}
}

// EnabledWeightSum returns the sum of the weights of enabled signals.
func (c HybridConfig) EnabledWeightSum() float64 {
	var sum float64
	if c.UseSemantic {
		sum += c.SemanticWeight
	}
	if c.UseKeyword {
		sum += c.KeywordWeight
	}
	if c.UseKnowledgeGraph {
		sum += c.KnowledgeGraphWeight
	}
	return sum
}

// Validate checks that at least one signal is enabled, every weight is finite
// and not negative,
// and the enabled weights sum to 1.0 within WeightTolerance.
func (c HybridConfig) Validate() error {
	if !c.UseSemantic && !c.UseKeyword && !c.UseKnowledgeGraph {
		return fmt.Errorf("%w: at least one signal must be enabled", ErrConfig)
	}
	for _, w := range []float64{c.SemanticWeight, c.KeywordWeight, c.KnowledgeGraphWeight} {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weights must be finite", ErrConfig)
		}
	}
	if c.SemanticWeight < 0 || c.KeywordWeight < 0 || c.KnowledgeGraphWeight < 0 {
		return fmt.Errorf("%w: weights cannot be negative", ErrConfig)
	}
	sum := c.EnabledWeightSum()
	if math.Abs(sum-1.0) > WeightTolerance {
		return fmt.Errorf("%w: enabled weights sum to %.4f, want 1.0", ErrConfig, sum)
	}
	return nil
}

// Settings holds the per-session tunables for the question-answering pipeline.
type Settings struct {
	Hybrid       HybridConfig `toml:"hybrid" json:"hybrid"`
	Temperature  float64      `toml:"temperature" json:"temperature"`
	MaxTokens    int          `toml:"max_tokens" json:"max_tokens"`
	ContextTurns int          `toml:"context_turns" json:"context_turns"`
	SubQueryK    int          `toml:"sub_query_k" json:"sub_query_k"`
	// MinScore drops retrieved chunks whose fused score is not above it.
	MinScore float64 `toml:"min_score" json:"min_score"`
}

// DefaultSettings returns the settings a new session starts with.
func DefaultSettings() Settings {
	return Settings{
		Hybrid:       DefaultHybridConfig(),
		Temperature:  0.7,
		MaxTokens:    2000,
		ContextTurns: 2,
		SubQueryK:    2,
	}
}

// Validate checks every field, starting with the hybrid weights.
func (s Settings) Validate() error {
	if err := s.Hybrid.Validate(); err != nil {
		return err
	}
	if err := ValidateTemperature(s.Temperature); err != nil {
		return err
	}
	if s.MaxTokens < 1 {
		return fmt.Errorf("%w: max tokens must be positive", ErrConfig)
	}
	if s.ContextTurns < 0 {
		return fmt.Errorf("%w: context turns cannot be negative", ErrConfig)
	}
	if s.SubQueryK < 1 {
		return fmt.Errorf("%w: sub-query k must be positive", ErrConfig)
	}
	if math.IsNaN(s.MinScore) || math.IsInf(s.MinScore, 0) {
		return fmt.Errorf("%w: min score must be finite", ErrConfig)
	}
	return nil
}

// ValidateTemperature requires t to be within [0, 1].
func ValidateTemperature(t float64) error {
	if t < 0 || t > 1 || math.IsNaN(t) {
		return fmt.Errorf("%w: temperature must be between 0 and 1", ErrConfig)
	}
	return nil
}
