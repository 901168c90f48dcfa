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
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/hybridrag/ai"
	"github.com/poiesic/hybridrag/core"
)

// embedChunks embeds chunk contents in batches of batchSize, running batches
// on a worker pool. Output order matches chunks.
func (ix *Index) embedChunks(ctx context.Context, chunks []core.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	batches := ai.Batch(texts, ix.batchSize)
	results := make([][][]float32, len(batches))

	err := ix.fanOut(ctx, len(batches), func(ctx context.Context, i int) error {
		vectors, err := ix.embedder.EmbedTexts(ctx, batches[i])
		if err != nil {
			return err
		}
		if len(vectors) != len(batches[i]) {
			return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(batches[i]), len(vectors))
		}
		results[i] = vectors
		return nil
	})
	if err != nil {
		ix.logger.Error("error generating chunk embeddings", "err", err)
		return nil, fmt.Errorf("%w: embedding chunks: %w", core.ErrRetrievalFailed, err)
	}

	vectors := make([][]float32, 0, len(chunks))
	for _, r := range results {
		vectors = append(vectors, r...)
	}
	return vectors, nil
}

// recognizeChunks runs entity recognition on every chunk concurrently.
func (ix *Index) recognizeChunks(ctx context.Context, chunks []core.Chunk) ([]*ai.Analysis, error) {
	analyses := make([]*ai.Analysis, len(chunks))
	err := ix.fanOut(ctx, len(chunks), func(ctx context.Context, i int) error {
		a, err := ix.recognizer.Recognize(ctx, chunks[i].Content)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		analyses[i] = a
		return nil
	})
	if err != nil {
		ix.logger.Error("error recognizing entities", "err", err)
		return nil, fmt.Errorf("%w: entity recognition: %w", core.ErrRetrievalFailed, err)
	}
	return analyses, nil
}

// fanOut runs fn(0..n-1) on a fresh ants pool and returns the first error.
// Remaining tasks are skipped once one fails.
func (ix *Index) fanOut(parent context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if n == 0 {
		return nil
	}
	pool, err := ants.NewPool(min(ix.poolSize, n))
	if err != nil {
		return err
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i := range n {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if err := fn(ctx, i); err != nil {
				fail(err)
			}
		})
		if submitErr != nil {
			wg.Done()
			fail(submitErr)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return parent.Err()
}
