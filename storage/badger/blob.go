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

package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/hybridrag/storage"
)

// BlobStore implements storage.BlobStore on top of a Backend.
type BlobStore struct {
	backend    *Backend
	ownBackend bool
}

var _ storage.BlobStore = (*BlobStore)(nil)

func newBlobStore(backend *Backend, own bool) (*BlobStore, error) {
	if backend == nil {
		return nil, errors.New("backend cannot be nil")
	}
	return &BlobStore{backend: backend, ownBackend: own}, nil
}

// NewBlobStore creates a blob store over an existing backend.
// Closing the store leaves the backend open.
func NewBlobStore(backend *Backend) (storage.BlobStore, error) {
	return newBlobStore(backend, false)
}

// OpenBlobStore opens a BadgerDB database at path and returns a blob store
// that owns it.
func OpenBlobStore(path string) (storage.BlobStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newBlobStore(backend, true)
}

func (s *BlobStore) checkOpen() error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// PutBlob stores data under key.
func (s *BlobStore) PutBlob(ctx context.Context, key string, data []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeBlobKey(key), data); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return fmt.Errorf("put blob %q: %w", key, err)
	}
	s.backend.logger.Debug("stored blob", "key", key, "bytes", len(data))
	return nil
}

// GetBlob returns a copy of the data stored under key.
func (s *BlobStore) GetBlob(ctx context.Context, key string) ([]byte, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeBlobKey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// DeleteBlob removes key if present.
func (s *BlobStore) DeleteBlob(ctx context.Context, key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeBlobKey(key)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListBlobs returns the keys starting with prefix in lexicographic order.
func (s *BlobStore) ListBlobs(ctx context.Context, prefix string) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var keys []string
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeBlobKey(prefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, blobName(iter.Item().KeyCopy(nil)))
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Close closes the underlying backend if this store opened it.
func (s *BlobStore) Close() error {
	if !s.ownBackend {
		return nil
	}
	return s.backend.Close()
}
