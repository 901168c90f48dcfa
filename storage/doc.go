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

// Package storage provides the persistence abstraction for hybrid indexes.
//
// An index is saved as a single serialized snapshot (see MarshalSnapshot)
// in a BlobStore. Two backends are provided:
//
//   - storage/badger: embedded BadgerDB, the default
//   - storage/postgres: a single PostgreSQL table accessed through pgx
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.BlobStore interface:
//
//	store, err := badger.OpenBlobStore("/path/to/db")  // returns storage.BlobStore
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Usage
//
//	store, err := badger.NewMemoryBlobStore()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.PutBlob(ctx, "index:default", storage.MarshalSnapshot(snap))
//
// # Thread Safety
//
// All BlobStore implementations must be safe for concurrent use.
package storage
