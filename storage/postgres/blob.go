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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poiesic/hybridrag/storage"
)

// DefaultTable is the table blobs are stored in.
const DefaultTable = "hybridrag_blobs"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// BlobStore implements storage.BlobStore on a single PostgreSQL table.
type BlobStore struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

var _ storage.BlobStore = (*BlobStore)(nil)

// Option configures a BlobStore.
type Option func(*BlobStore) error

// WithTable overrides the table name.
func WithTable(name string) Option {
	return func(s *BlobStore) error {
		if !tableName.MatchString(name) {
			return fmt.Errorf("invalid table name %q", name)
		}
		s.table = name
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *BlobStore) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// Open connects to the database at connStr, verifies the connection, and
// creates the blob table if needed.
func Open(ctx context.Context, connStr string, opts ...Option) (storage.BlobStore, error) {
	s := &BlobStore{
		table:  DefaultTable,
		logger: slog.Default().With("component", "postgres-blobstore"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s.pool = pool

	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *BlobStore) initialize(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			data BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.table))
	if err != nil {
		return fmt.Errorf("failed to create %s table: %w", s.table, err)
	}
	return nil
}

// PutBlob upserts data under key.
func (s *BlobStore) PutBlob(ctx context.Context, key string, data []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (key, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`, s.table),
		key, data)
	if err != nil {
		return fmt.Errorf("put blob %q: %w", key, err)
	}
	s.logger.Debug("stored blob", "key", key, "bytes", len(data))
	return nil
}

// GetBlob returns the data stored under key.
func (s *BlobStore) GetBlob(ctx context.Context, key string) ([]byte, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	var data []byte
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT data FROM %s WHERE key = $1`, s.table), key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get blob %q: %w", key, err)
	}
	return data, nil
}

// DeleteBlob removes key if present.
func (s *BlobStore) DeleteBlob(ctx context.Context, key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table), key)
	return err
}

// ListBlobs returns keys starting with prefix, sorted.
func (s *BlobStore) ListBlobs(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT key FROM %s WHERE starts_with(key, $1) ORDER BY key`, s.table), prefix)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Close closes the connection pool.
func (s *BlobStore) Close() error {
	s.pool.Close()
	return nil
}
