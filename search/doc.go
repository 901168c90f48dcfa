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

// Package search implements the hybrid index: a growing corpus of chunks
// searchable by three independent relevance signals.
//
//   - Semantic: cosine similarity between query and chunk embeddings
//   - Keyword: BM25 Okapi over lower-cased tokens, L2-normalized
//   - Knowledge graph: proximity in an entity co-occurrence graph, L2-normalized
//
// Enabled signals are fused as a weighted sum divided by the weight sum.
// Query embeddings are kept in a bounded LRU cache keyed by case- and
// whitespace-folded query text.
//
// An Index moves from empty to loaded on the first successful Load. Further
// Load calls are ignored; Append grows a loaded index. Index state can be
// saved to and restored from a storage.BlobStore.
//
//	ix, err := search.New(provider, search.WithStore(store))
//	err = ix.Load(ctx, chunks)
//	hits, err := ix.Search(ctx, "where is the eiffel tower", core.DefaultHybridConfig(), 3)
package search
