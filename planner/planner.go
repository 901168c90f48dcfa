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

package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/hybridrag/ai"
	"github.com/poiesic/hybridrag/core"
)

var (
	// ErrGeneratorRequired is returned by New when no generator is supplied.
	ErrGeneratorRequired = errors.New("generator is required")
)

const (
	defaultTemperature = 0.0
	defaultMaxTokens   = 512
)

// Planner rewrites and decomposes questions with a generation service.
type Planner struct {
	generator   ai.Generator
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner) error

// WithTemperature sets the sampling temperature for planning calls.
func WithTemperature(t float64) Option {
	return func(p *Planner) error {
		if err := core.ValidateTemperature(t); err != nil {
			return err
		}
		p.temperature = t
		return nil
	}
}

// WithMaxTokens caps the length of planning replies.
func WithMaxTokens(n int) Option {
	return func(p *Planner) error {
		if n < 1 {
			return fmt.Errorf("%w: max tokens must be positive", core.ErrConfig)
		}
		p.maxTokens = n
		return nil
	}
}

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) error {
		if logger != nil {
			p.logger = logger.With("component", "planner")
		}
		return nil
	}
}

// New creates a planner backed by generator.
func New(generator ai.Generator, opts ...Option) (*Planner, error) {
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	p := &Planner{
		generator:   generator,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		logger:      slog.Default().With("component", "planner"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Planner) generate(ctx context.Context, op, system, user string) (string, error) {
	reply, err := p.generator.Generate(ctx, []ai.Message{
		ai.SystemMessage(system),
		ai.UserMessage(user),
	}, ai.GenerateOptions{Temperature: p.temperature, MaxTokens: p.maxTokens})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", core.ErrGenerationFailed, op, err)
	}
	return reply, nil
}

// Rewrite makes question self-contained using the last two of recent turns.
// With no turns the question is returned as is and no model call is made.
// A reply without a usable <rewritten> block also yields the original question.
func (p *Planner) Rewrite(ctx context.Context, question string, recent []core.Turn) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question %w", core.ErrInvalidArgument, core.ErrEmptyContent)
	}
	if len(recent) == 0 {
		return question, nil
	}
	if len(recent) > contextTurns {
		recent = recent[len(recent)-contextTurns:]
	}

	reply, err := p.generate(ctx, "rewrite", rewriteSystemPrompt, rewriteUserPrompt(question, recent))
	if err != nil {
		return "", err
	}
	rewritten, ok := parseRewrite(reply)
	if !ok {
		p.logger.Warn("rewrite reply had no usable block, keeping original question")
		return question, nil
	}
	p.logger.Debug("question rewritten", "original", question, "rewritten", rewritten)
	return rewritten, nil
}

// Decompose splits question into ranked sub-queries. A reply that cannot be
// parsed is not an error; check Outcome or use Queries with a fallback.
func (p *Planner) Decompose(ctx context.Context, question string) (Decomposition, error) {
	if strings.TrimSpace(question) == "" {
		return Decomposition{}, fmt.Errorf("%w: question %w", core.ErrInvalidArgument, core.ErrEmptyContent)
	}
	reply, err := p.generate(ctx, "decompose", decomposeSystemPrompt, question)
	if err != nil {
		return Decomposition{}, err
	}

	d, problems := parseDecomposition(reply)
	for _, problem := range problems {
		p.logger.Warn("skipping sub-query", "error", problem)
	}
	p.logger.Debug("question decomposed",
		"outcome", d.Outcome,
		"sub_queries", len(d.SubQueries),
		"skipped", d.Skipped)
	return d, nil
}

// Phrases asks for up to five short keyword phrases covering question.
func (p *Planner) Phrases(ctx context.Context, question string) ([]string, ParseOutcome, error) {
	if strings.TrimSpace(question) == "" {
		return nil, OutcomeEmpty, fmt.Errorf("%w: question %w", core.ErrInvalidArgument, core.ErrEmptyContent)
	}
	reply, err := p.generate(ctx, "phrases", phrasesSystemPrompt, question)
	if err != nil {
		return nil, OutcomeEmpty, err
	}
	phrases, outcome := ParsePhrases(reply)
	p.logger.Debug("phrases generated", "outcome", outcome, "phrases", len(phrases))
	return phrases, outcome, nil
}
