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
	"fmt"
	"slices"

	"github.com/poiesic/hybridrag/core"
	"github.com/poiesic/hybridrag/storage"
)

// Save writes the full index state, including the query cache, to the store.
func (ix *Index) Save(ctx context.Context) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()
	return ix.save(ctx)
}

func (ix *Index) save(ctx context.Context) error {
	if ix.store == nil {
		return ErrStoreRequired
	}
	snap := ix.snapshot()
	data := storage.MarshalSnapshot(snap)
	if err := ix.store.PutBlob(ctx, ix.key, data); err != nil {
		ix.logger.Error("error saving index", "key", ix.key, "err", err)
		return fmt.Errorf("saving index %q: %w", ix.key, err)
	}
	ix.logger.Debug("saved index", "key", ix.key, "chunks", len(snap.Chunks), "bytes", len(data))
	return nil
}

// Restore replaces the index state with the last saved snapshot.
// It fails with core.ErrNotFound if nothing was saved or no store is configured.
func (ix *Index) Restore(ctx context.Context) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	if ix.store == nil {
		return fmt.Errorf("%w: no blob store configured", core.ErrNotFound)
	}
	data, err := ix.store.GetBlob(ctx, ix.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: no saved index under %q", core.ErrNotFound, ix.key)
		}
		return fmt.Errorf("restoring index %q: %w", ix.key, err)
	}
	snap, err := storage.UnmarshalSnapshot(data)
	if err != nil {
		return fmt.Errorf("restoring index %q: %w", ix.key, err)
	}
	state, err := corpusFromSnapshot(snap)
	if err != nil {
		return fmt.Errorf("restoring index %q: %w", ix.key, err)
	}

	ix.commit(state)
	ix.cache.restore(snap.Cache)
	ix.logger.Info("restored index", "key", ix.key, "chunks", len(state.chunks), "cached_queries", len(snap.Cache))
	return nil
}

func (ix *Index) snapshot() *core.IndexSnapshot {
	state := ix.current()
	nodes, edges, postings := state.graph.snapshot()
	return &core.IndexSnapshot{
		Chunks:   slices.Clone(state.chunks),
		Vectors:  slices.Clone(state.vectors),
		Tokens:   slices.Clone(state.tokens),
		Nodes:    nodes,
		Edges:    edges,
		Postings: postings,
		Cache:    ix.cache.snapshot(),
	}
}

func corpusFromSnapshot(snap *core.IndexSnapshot) (*corpus, error) {
	n := len(snap.Chunks)
	if len(snap.Vectors) != n || len(snap.Tokens) != n {
		return nil, fmt.Errorf("%w: %d chunks, %d vectors, %d token lists",
			storage.ErrSerializationFailed, n, len(snap.Vectors), len(snap.Tokens))
	}
	for _, p := range snap.Postings {
		for _, pos := range p.Positions {
			if pos < 0 || pos >= n {
				return nil, fmt.Errorf("%w: entity %q maps to chunk %d of %d",
					storage.ErrSerializationFailed, p.Entity, pos, n)
			}
		}
	}
	if n == 0 {
		return emptyCorpus(), nil
	}
	return &corpus{
		chunks:   snap.Chunks,
		vectors:  snap.Vectors,
		tokens:   snap.Tokens,
		keywords: newKeywordIndex(snap.Tokens),
		graph:    graphFromSnapshot(snap.Nodes, snap.Edges, snap.Postings),
	}, nil
}
