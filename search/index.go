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
	"errors"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"github.com/poiesic/hybridrag/ai"
	"github.com/poiesic/hybridrag/core"
	"github.com/poiesic/hybridrag/storage"
)

const (
	// DefaultBatchSize is the number of chunks embedded per request.
	DefaultBatchSize = 128

	// DefaultKey is the blob key used when none is configured.
	DefaultKey = "index:default"
)

// Index is a hybrid retrieval index over a growing set of chunks.
// Searches may run concurrently with each other and with Load/Append;
// writers are serialized.
type Index struct {
	embedder   ai.Embedder
	recognizer ai.EntityRecognizer
	store      storage.BlobStore
	key        string
	batchSize  int
	poolSize   int
	cacheSize  int
	logger     *slog.Logger

	writeMu sync.Mutex // serializes Load, Append, Save, Restore, Reset

	mu    sync.RWMutex
	state *corpus
	cache *queryCache
}

// Option configures an Index.
type Option func(*Index) error

// WithStore sets the blob store used by Save, Restore, and post-load persistence.
func WithStore(store storage.BlobStore) Option {
	return func(ix *Index) error {
		ix.store = store
		return nil
	}
}

// WithKey sets the blob key the index is saved under.
func WithKey(key string) Option {
	return func(ix *Index) error {
		if err := storage.ValidateKey(key); err != nil {
			return err
		}
		ix.key = key
		return nil
	}
}

// WithBatchSize sets how many chunks are embedded per request.
func WithBatchSize(size int) Option {
	return func(ix *Index) error {
		if size < 1 {
			return errors.New("batch size must be positive")
		}
		ix.batchSize = size
		return nil
	}
}

// WithPoolSize sets the worker pool size for embedding and entity recognition.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(ix *Index) error {
		if size < 1 {
			size = 1
		}
		ix.poolSize = size
		return nil
	}
}

// WithCacheSize sets the maximum number of cached query embeddings.
func WithCacheSize(size int) Option {
	return func(ix *Index) error {
		if size < 1 {
			return errors.New("cache size must be positive")
		}
		ix.cacheSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger
		return nil
	}
}

// New creates an empty index that embeds and recognizes entities through provider.
func New(provider ai.AIProvider, opts ...Option) (*Index, error) {
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	ix := &Index{
		embedder:   provider.Embedder(),
		recognizer: provider.EntityRecognizer(),
		key:        DefaultKey,
		batchSize:  DefaultBatchSize,
		poolSize:   max(runtime.NumCPU()/2, 1),
		cacheSize:  DefaultCacheSize,
		logger:     slog.Default().With("component", "hybrid-index"),
	}

	for _, opt := range opts {
		if err := opt(ix); err != nil {
			return nil, err
		}
	}

	cache, err := newQueryCache(ix.cacheSize)
	if err != nil {
		return nil, err
	}
	ix.cache = cache
	ix.state = emptyCorpus()

	return ix, nil
}

// Key returns the blob key the index is saved under.
func (ix *Index) Key() string { return ix.key }

func (ix *Index) current() *corpus {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.state
}

func (ix *Index) commit(next *corpus) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.state = next
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	return len(ix.current().chunks)
}

// Loaded reports whether the index holds any chunks.
func (ix *Index) Loaded() bool {
	return ix.Len() > 0
}

// Chunks returns a copy of the indexed chunks in position order.
func (ix *Index) Chunks() []core.Chunk {
	return slices.Clone(ix.current().chunks)
}

// CacheLen returns the number of cached query embeddings.
func (ix *Index) CacheLen() int {
	return ix.cache.len()
}

// Stats summarizes index contents.
type Stats struct {
	Chunks      int
	Entities    int
	Edges       int
	CachedQuery int
}

// Stats returns a summary of the current index state.
func (ix *Index) Stats() Stats {
	state := ix.current()
	return Stats{
		Chunks:      len(state.chunks),
		Entities:    state.graph.nodeCount(),
		Edges:       state.graph.edgeCount(),
		CachedQuery: ix.cache.len(),
	}
}

// Load builds the index from chunks. It fails with core.ErrEmptyCorpus for no
// chunks and core.ErrInvalidArgument for a chunk without content. If the index
// is already loaded the call does nothing. Any embedding or entity recognition
// failure aborts the load and leaves the index empty. After a successful build
// the index is saved when a store is configured.
func (ix *Index) Load(ctx context.Context, chunks []core.Chunk) error {
	if err := core.ValidateChunks(chunks); err != nil {
		return err
	}

	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	if ix.Loaded() {
		ix.logger.Info("index already loaded, ignoring load", "chunks", ix.Len(), "offered", len(chunks))
		return nil
	}

	return ix.grow(ctx, emptyCorpus(), chunks)
}

// Append adds chunks to the index, loading it if empty. Existing chunk
// positions are unchanged; the keyword index is rebuilt over all chunks and
// the graph is extended with the new ones.
func (ix *Index) Append(ctx context.Context, chunks []core.Chunk) error {
	if err := core.ValidateChunks(chunks); err != nil {
		return err
	}

	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	return ix.grow(ctx, ix.current(), chunks)
}

func (ix *Index) grow(ctx context.Context, base *corpus, chunks []core.Chunk) error {
	ix.logger.Info("indexing chunks", "new", len(chunks), "existing", len(base.chunks))

	vectors, err := ix.embedChunks(ctx, chunks)
	if err != nil {
		return err
	}
	analyses, err := ix.recognizeChunks(ctx, chunks)
	if err != nil {
		return err
	}

	next := base.extend(chunks, vectors, analyses)
	ix.commit(next)
	ix.logger.Info("index updated", "chunks", len(next.chunks),
		"entities", next.graph.nodeCount(), "edges", next.graph.edgeCount())

	if ix.store == nil {
		return nil
	}
	return ix.save(ctx)
}

// Reembed recomputes every chunk vector with the index's embedder and drops
// the query cache. Use it after the embedding model changes. Keyword and
// graph state are kept. On error the index is unchanged.
func (ix *Index) Reembed(ctx context.Context) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	base := ix.current()
	if len(base.chunks) == 0 {
		return core.ErrIndexNotReady
	}
	ix.logger.Info("re-embedding chunks", "chunks", len(base.chunks))

	vectors, err := ix.embedChunks(ctx, base.chunks)
	if err != nil {
		return err
	}
	ix.commit(base.withVectors(vectors))
	ix.cache.purge()

	if ix.store == nil {
		return nil
	}
	return ix.save(ctx)
}

// Reset discards all chunks and cached query embeddings.
// A saved snapshot is left in the store.
func (ix *Index) Reset() {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()
	ix.commit(emptyCorpus())
	ix.cache.purge()
}
