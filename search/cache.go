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
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/poiesic/hybridrag/core"
)

// DefaultCacheSize is the number of query embeddings kept by default.
const DefaultCacheSize = 1024

// queryCache maps normalized query text to its embedding with LRU eviction.
// It is safe for concurrent use.
type queryCache struct {
	entries *lru.Cache[string, []float32]
}

func newQueryCache(size int) (*queryCache, error) {
	entries, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &queryCache{entries: entries}, nil
}

func (c *queryCache) get(query string) ([]float32, bool) {
	return c.entries.Get(normalizeQuery(query))
}

func (c *queryCache) put(query string, vector []float32) {
	c.entries.Add(normalizeQuery(query), vector)
}

func (c *queryCache) len() int {
	return c.entries.Len()
}

func (c *queryCache) purge() {
	c.entries.Purge()
}

// snapshot returns the cached entries from least to most recently used.
func (c *queryCache) snapshot() []core.CacheEntry {
	keys := c.entries.Keys()
	out := make([]core.CacheEntry, 0, len(keys))
	for _, k := range keys {
		if v, ok := c.entries.Peek(k); ok {
			out = append(out, core.CacheEntry{Query: k, Vector: slices.Clone(v)})
		}
	}
	return out
}

// restore replaces the cache contents, replaying entries oldest first so
// recency order survives a save/restore cycle.
func (c *queryCache) restore(entries []core.CacheEntry) {
	c.entries.Purge()
	for _, e := range entries {
		c.entries.Add(e.Query, e.Vector)
	}
}
