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
	"log/slog"
	"time"

	"github.com/poiesic/hybridrag/ai"
)

// RetryWithBackoff runs operation up to maxAttempts times, sleeping
// baseDelay, 2*baseDelay, 4*baseDelay, ... between attempts.
// Returns the error from the last attempt if all attempts fail.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "error", lastErr)

		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}

	return lastErr
}

// retryingEmbedder retries failed embedding calls.
type retryingEmbedder struct {
	inner       ai.Embedder
	maxAttempts int
	baseDelay   time.Duration
}

var _ ai.Embedder = (*retryingEmbedder)(nil)

func (e *retryingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vector, err = e.inner.EmbedText(ctx, text)
		return err
	}, e.maxAttempts, e.baseDelay)
	return vector, err
}

func (e *retryingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = e.inner.EmbedTexts(ctx, texts)
		return err
	}, e.maxAttempts, e.baseDelay)
	return vectors, err
}

// retryingProvider is an ai.AIProvider whose embedder retries.
type retryingProvider struct {
	ai.AIProvider
	embedder ai.Embedder
}

func (p *retryingProvider) Embedder() ai.Embedder { return p.embedder }

// WithRetry wraps provider so its embedder retries failed calls as
// configured. Other services are passed through unchanged.
func WithRetry(provider ai.AIProvider, config *Config) ai.AIProvider {
	if config == nil {
		config = DefaultConfig()
	}
	return &retryingProvider{
		AIProvider: provider,
		embedder: &retryingEmbedder{
			inner:       provider.Embedder(),
			maxAttempts: config.MaxRetries,
			baseDelay:   config.RetryDelay,
		},
	}
}
