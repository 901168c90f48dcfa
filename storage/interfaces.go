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

package storage

import "context"

// BlobStore persists opaque byte blobs under string keys.
// Index snapshots are stored whole, one blob per index.
type BlobStore interface {
	// PutBlob stores data under key, replacing any previous value.
	PutBlob(ctx context.Context, key string, data []byte) error

	// GetBlob returns the data stored under key.
	// Returns ErrNotFound if the key has never been written or was deleted.
	GetBlob(ctx context.Context, key string) ([]byte, error)

	// DeleteBlob removes key. Deleting a missing key is not an error.
	DeleteBlob(ctx context.Context, key string) error

	// ListBlobs returns the stored keys that start with prefix, sorted.
	ListBlobs(ctx context.Context, prefix string) ([]string, error)

	// Close releases resources held by the store.
	Close() error
}
