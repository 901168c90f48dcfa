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

package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/hybridrag/ingestion"
	"github.com/poiesic/hybridrag/session"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// MaxRetries is the maximum number of attempts per embedding request
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries: 3,
		RetryDelay: 1 * time.Second,
	}
}

// Validate checks that the retry settings are usable.
func (c *Config) Validate() error {
	if c.MaxRetries <= 0 {
		return ErrInvalidMaxAttempts
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}
	return nil
}

// Reembedder re-embeds the indexes of saved sessions.
type Reembedder struct {
	registry *session.Registry
	progress io.Writer
	logger   *slog.Logger
}

// NewReembedder creates a reembedder over registry. Progress is written to
// progress when it is not nil.
func NewReembedder(registry *session.Registry, progress io.Writer) (*Reembedder, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	return &Reembedder{
		registry: registry,
		progress: progress,
		logger:   slog.Default().With("component", "reembed"),
	}, nil
}

// Run re-embeds the sessions named by ids, or every saved session when ids
// is empty. It stops at the first failure; sessions already processed keep
// their new vectors. Returns the number of sessions re-embedded.
func (r *Reembedder) Run(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		saved, err := r.registry.Saved(ctx)
		if err != nil {
			return 0, fmt.Errorf("listing sessions: %w", err)
		}
		ids = saved
	}
	if len(ids) == 0 {
		r.logger.Info("no sessions to re-embed")
		return 0, nil
	}

	var tracker *ingestion.ProgressTracker
	if r.progress != nil {
		tracker = ingestion.NewProgressTracker(r.progress, len(ids), 1)
		tracker.SetLabel("Re-embedding", "sessions")
		tracker.Start()
		defer tracker.Finish()
	}

	start := time.Now()
	for i, id := range ids {
		s, err := r.registry.Open(ctx, id)
		if err != nil {
			return i, fmt.Errorf("opening session %s: %w", id, err)
		}
		if err := s.Index().Reembed(ctx); err != nil {
			return i, fmt.Errorf("re-embedding session %s: %w", id, err)
		}
		r.logger.Debug("session re-embedded", "session", id, "chunks", s.Index().Len())
		if tracker != nil {
			tracker.Increment(1)
		}
	}

	r.logger.Info("re-embedding complete", "sessions", len(ids), "elapsed", time.Since(start))
	return len(ids), nil
}
