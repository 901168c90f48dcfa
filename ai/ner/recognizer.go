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

package ner

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/hybridrag/ai"
)

// ErrGeneratorRequired is returned when no generator is supplied.
var ErrGeneratorRequired = errors.New("generator required")

const defaultMaxAttempts = 3

// Recognizer implements ai.EntityRecognizer by prompting a generator for JSON.
type Recognizer struct {
	generator   ai.Generator
	maxAttempts int
	logger      *slog.Logger
}

var _ ai.EntityRecognizer = (*Recognizer)(nil)

// Option configures a Recognizer.
type Option func(*Recognizer) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recognizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithMaxAttempts sets how many times a malformed reply is re-requested.
func WithMaxAttempts(n int) Option {
	return func(r *Recognizer) error {
		if n < 1 {
			return errors.New("max attempts must be positive")
		}
		r.maxAttempts = n
		return nil
	}
}

// NewRecognizer creates a recognizer backed by generator.
func NewRecognizer(generator ai.Generator, opts ...Option) (*Recognizer, error) {
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	r := &Recognizer{
		generator:   generator,
		maxAttempts: defaultMaxAttempts,
		logger:      slog.Default().With("component", "ner"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// entity and sentence mirror the JSON reply format.
type entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

type sentence struct {
	Text     string   `json:"text"`
	Entities []entity `json:"entities"`
}

type reply struct {
	Sentences []sentence `json:"sentences"`
}

// Recognize segments text into sentences and extracts the entities of each.
func (r *Recognizer) Recognize(ctx context.Context, text string) (*ai.Analysis, error) {
	text = cleanText(text)
	if text == "" {
		return &ai.Analysis{}, nil
	}

	messages := []ai.Message{
		ai.SystemMessage(buildSystemPrompt()),
		ai.UserMessage(text),
	}
	opts := ai.GenerateOptions{Temperature: 0.0, JSONMode: true}

	var result reply
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		response, err := r.generator.Generate(ctx, messages, opts)
		if err != nil {
			r.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		responseText := stripCodeFence(response)
		responseText = repairJSON(responseText)

		result = reply{}
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			r.logger.Warn("error parsing recognizer response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		r.logger.Error("failed to parse recognizer response after retries", "err", lastErr)
		return nil, lastErr
	}

	analysis := &ai.Analysis{Sentences: make([]ai.Sentence, 0, len(result.Sentences))}
	total := 0
	for _, s := range result.Sentences {
		out := ai.Sentence{Text: strings.TrimSpace(s.Text)}
		for _, e := range s.Entities {
			name := strings.TrimSpace(e.Text)
			if name == "" {
				continue
			}
			label := ai.NormalizeLabel(e.Label)
			if label == "" {
				label = "MISC"
			}
			out.Entities = append(out.Entities, ai.Entity{Text: name, Label: label})
		}
		total += len(out.Entities)
		analysis.Sentences = append(analysis.Sentences, out)
	}

	r.logger.Debug("recognized entities", "sentences", len(analysis.Sentences), "entities", total)
	return analysis, nil
}
