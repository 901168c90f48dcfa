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

package chunker

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/hybridrag/core"
)

const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// Chunker splits documents into token windows. It is safe for concurrent use.
type Chunker struct {
	chunkSize int
	overlap   int
	tokenizer Tokenizer
	logger    *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithChunkSize sets the window length in tokens used by Process.
func WithChunkSize(size int) Option {
	return func(c *Chunker) error {
		c.chunkSize = size
		return nil
	}
}

// WithOverlap sets the number of tokens shared by consecutive windows.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) error {
		c.overlap = overlap
		return nil
	}
}

// WithTokenizer replaces the default cl100k_base tokenizer.
func WithTokenizer(t Tokenizer) Option {
	return func(c *Chunker) error {
		if t == nil {
			return errors.New("tokenizer cannot be nil")
		}
		c.tokenizer = t
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// New creates a Chunker. The window configuration is validated up front.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
		logger:    slog.Default().With("component", "chunker"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := validateWindow(c.chunkSize, c.overlap); err != nil {
		return nil, err
	}
	if c.tokenizer == nil {
		t, err := NewTiktokenTokenizer()
		if err != nil {
			return nil, err
		}
		c.tokenizer = t
	}
	return c, nil
}

func validateWindow(chunkSize, overlap int) error {
	if chunkSize < 1 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", core.ErrConfig, chunkSize)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap cannot be negative, got %d", core.ErrConfig, overlap)
	}
	if overlap >= chunkSize {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", core.ErrConfig, overlap, chunkSize)
	}
	return nil
}

// ChunkSize returns the configured window length.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured window overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Split tokenizes text and returns windows of chunkSize tokens, each starting
// chunkSize-overlap tokens after the previous one. A window starts at every
// step offset below the token count, so the tail window may be shorter.
func (c *Chunker) Split(text string, chunkSize, overlap int) ([]string, error) {
	if err := validateWindow(chunkSize, overlap); err != nil {
		return nil, err
	}

	tokens := c.tokenizer.Encode(text)
	step := chunkSize - overlap
	chunks := make([]string, 0, (len(tokens)+step-1)/step)
	for start := 0; start < len(tokens); start += step {
		end := min(start+chunkSize, len(tokens))
		chunks = append(chunks, c.tokenizer.Decode(tokens[start:end]))
	}
	return chunks, nil
}

// Process extracts the text of file and splits it with the configured window.
// On any error no chunks are returned.
func (c *Chunker) Process(file File) ([]core.Chunk, error) {
	text, err := extractText(file)
	if err != nil {
		c.logger.Warn("could not read file", "name", file.Name, "err", err)
		return nil, fmt.Errorf("processing %s: %w", file.Name, err)
	}

	pieces, err := c.Split(text, c.chunkSize, c.overlap)
	if err != nil {
		return nil, err
	}

	chunks := make([]core.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = core.Chunk{
			Title:   fmt.Sprintf("%s - Chunk %d", file.Name, i+1),
			Content: piece,
			Summary: fmt.Sprintf("Chunk %d of document %s", i+1, file.Name),
		}
	}
	c.logger.Debug("processed file", "name", file.Name, "chunks", len(chunks))
	return chunks, nil
}
