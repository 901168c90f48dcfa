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

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/hybridrag/ai"
	"github.com/poiesic/hybridrag/chunker"
	"github.com/poiesic/hybridrag/core"
	"github.com/poiesic/hybridrag/ingestion"
	"github.com/poiesic/hybridrag/planner"
	"github.com/poiesic/hybridrag/search"
)

var (
	// ErrIndexRequired is returned when a session is created without an index.
	ErrIndexRequired = errors.New("index is required")

	// ErrGeneratorRequired is returned when a session is created without a generator.
	ErrGeneratorRequired = errors.New("generator is required")
)

// Session is one conversation over one index. Its methods are safe for
// concurrent use; mutating calls are serialized.
type Session struct {
	id        string
	created   time.Time
	index     *search.Index
	generator ai.Generator
	planner   *planner.Planner
	chunker   *chunker.Chunker
	pipeline  *ingestion.Pipeline
	ingestOpt []ingestion.Option
	phrases   bool
	memory    *Memory
	base      *slog.Logger
	logger    *slog.Logger

	mu       sync.Mutex
	settings core.Settings
}

// Option configures a Session.
type Option func(*Session) error

// WithID sets the session id. Default is a random UUID.
func WithID(id string) Option {
	return func(s *Session) error {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: session id cannot be empty", core.ErrInvalidArgument)
		}
		s.id = id
		return nil
	}
}

// WithSettings replaces the default settings. Invalid settings are rejected.
func WithSettings(settings core.Settings) Option {
	return func(s *Session) error {
		if err := settings.Validate(); err != nil {
			return err
		}
		s.settings = settings
		return nil
	}
}

// WithPlanner uses p for rewriting and decomposition instead of a planner
// built on the session's generator.
func WithPlanner(p *planner.Planner) Option {
	return func(s *Session) error {
		s.planner = p
		return nil
	}
}

// WithChunker sets the chunker used by Ingest.
func WithChunker(c *chunker.Chunker) Option {
	return func(s *Session) error {
		s.chunker = c
		return nil
	}
}

// WithIngestOptions adds options for the pipeline behind Ingest.
func WithIngestOptions(opts ...ingestion.Option) Option {
	return func(s *Session) error {
		s.ingestOpt = append(s.ingestOpt, opts...)
		return nil
	}
}

// WithShortQueries plans with short keyword phrases instead of typed sub-queries.
func WithShortQueries(enabled bool) Option {
	return func(s *Session) error {
		s.phrases = enabled
		return nil
	}
}

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// New creates a session answering from index with generator.
func New(index *search.Index, generator ai.Generator, opts ...Option) (*Session, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	s := &Session{
		id:        uuid.NewString(),
		created:   time.Now().UTC(),
		index:     index,
		generator: generator,
		memory:    NewMemory(),
		settings:  core.DefaultSettings(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.base = s.logger.With("session", s.id)
	s.logger = s.base.With("component", "session")

	if s.planner == nil {
		p, err := planner.New(generator, planner.WithLogger(s.base))
		if err != nil {
			return nil, err
		}
		s.planner = p
	}
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Created() time.Time { return s.created }

func (s *Session) Index() *search.Index { return s.index }

// Settings returns a copy of the current settings.
func (s *Session) Settings() core.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings replaces all settings. On error the previous settings are kept.
func (s *Session) UpdateSettings(settings core.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.logger.Info("settings updated",
		"semantic", settings.Hybrid.SemanticWeight,
		"keyword", settings.Hybrid.KeywordWeight,
		"graph", settings.Hybrid.KnowledgeGraphWeight,
		"temperature", settings.Temperature)
	return nil
}

// SetTemperature changes only the answer temperature, which must be in [0, 1].
func (s *Session) SetTemperature(t float64) error {
	if err := core.ValidateTemperature(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Temperature = t
	return nil
}

// History returns every remembered turn, oldest first.
func (s *Session) History() []core.Turn {
	return s.memory.Turns()
}

func (s *Session) ClearMemory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory.Clear()
}

// Ingest chunks files into the session's index.
func (s *Session) Ingest(ctx context.Context, files ...chunker.File) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pipeline == nil {
		if s.chunker == nil {
			c, err := chunker.New(chunker.WithLogger(s.base.With("component", "chunker")))
			if err != nil {
				return 0, err
			}
			s.chunker = c
		}
		opts := append([]ingestion.Option{ingestion.WithLogger(s.base)}, s.ingestOpt...)
		p, err := ingestion.NewPipeline(s.index, s.chunker, opts...)
		if err != nil {
			return 0, err
		}
		s.pipeline = p
	}
	return s.pipeline.Ingest(ctx, files...)
}

// Ask answers question from the index. When no chunk scores above the
// minimum the fixed core.NoInformationAnswer is returned, the generator is
// not called, and memory is left alone.
func (s *Session) Ask(ctx context.Context, question string) (*core.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question %w", core.ErrInvalidArgument, core.ErrEmptyContent)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.index.Loaded() {
		return nil, core.ErrIndexNotReady
	}
	settings := s.settings

	rewritten, err := s.planner.Rewrite(ctx, question, s.memory.Last(settings.ContextTurns))
	if err != nil {
		return nil, err
	}
	queries, err := s.plan(ctx, rewritten)
	if err != nil {
		return nil, err
	}

	docs, err := s.retrieve(ctx, queries, settings)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		s.logger.Info("no relevant documents", "queries", len(queries))
		return &core.Answer{Answer: core.NoInformationAnswer, Sources: []core.Source{}, Queries: queries}, nil
	}

	reply, err := s.generator.Generate(ctx, answerMessages(question, queries, docs), ai.GenerateOptions{
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
	})
	if err != nil {
		s.logger.Error("error generating answer", "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrGenerationFailed, err)
	}

	s.memory.Append(core.RoleUser, question)
	s.memory.Append(core.RoleAssistant, reply)

	sources := make([]core.Source, len(docs))
	for i, doc := range docs {
		sources[i] = core.Source{Title: doc.Chunk.Title, Similarity: doc.Score}
	}
	s.logger.Debug("answered question", "queries", len(queries), "documents", len(docs))
	return &core.Answer{Answer: reply, Sources: sources, Queries: queries}, nil
}

// plan returns the queries to search, most important first.
func (s *Session) plan(ctx context.Context, question string) ([]string, error) {
	if s.phrases {
		phrases, outcome, err := s.planner.Phrases(ctx, question)
		if err != nil {
			return nil, err
		}
		if !outcome.Usable() {
			s.logger.Warn("phrase generation unusable, searching the question", "outcome", outcome)
			return []string{question}, nil
		}
		return phrases, nil
	}

	dec, err := s.planner.Decompose(ctx, question)
	if err != nil {
		return nil, err
	}
	if !dec.Outcome.Usable() {
		s.logger.Warn("decomposition unusable, searching the question", "outcome", dec.Outcome)
	}
	return dec.Queries(question), nil
}

// retrieve searches every query and keeps the first hit for each distinct
// chunk content. Hits at or below the minimum score are dropped.
func (s *Session) retrieve(ctx context.Context, queries []string, settings core.Settings) ([]core.ScoredChunk, error) {
	seen := make(map[core.ID]struct{})
	var docs []core.ScoredChunk
	for _, q := range queries {
		hits, err := s.index.Search(ctx, q, settings.Hybrid, settings.SubQueryK)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			if hit.Score <= settings.MinScore {
				continue
			}
			id := hit.Chunk.ID()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			docs = append(docs, hit)
		}
	}
	return docs, nil
}
