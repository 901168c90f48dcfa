package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/poiesic/hybridrag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dsnEnv = "HYBRIDRAG_TEST_POSTGRES_DSN"

func openTestStore(t *testing.T) storage.BlobStore {
	t.Helper()
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}
	table := fmt.Sprintf("hybridrag_test_%d", time.Now().UnixNano())
	store, err := Open(context.Background(), dsn, WithTable(table))
	require.NoError(t, err)
	t.Cleanup(func() {
		s := store.(*BlobStore)
		_, _ = s.pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+table)
		store.Close()
	})
	return store
}

func TestWithTable_RejectsInjection(t *testing.T) {
	s := &BlobStore{}
	assert.Error(t, WithTable("blobs; DROP TABLE users")(s))
	assert.NoError(t, WithTable("my_blobs")(s))
	assert.Equal(t, "my_blobs", s.table)
}

func TestBlobStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.GetBlob(ctx, "index:a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.PutBlob(ctx, "index:a", []byte{1, 2, 3}))
	require.NoError(t, store.PutBlob(ctx, "index:a", []byte{4, 5}))
	require.NoError(t, store.PutBlob(ctx, "index:b", []byte{6}))

	data, err := store.GetBlob(ctx, "index:a")
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 5}, data)

	keys, err := store.ListBlobs(ctx, "index:")
	require.NoError(t, err)
	assert.Equal(t, []string{"index:a", "index:b"}, keys)

	require.NoError(t, store.DeleteBlob(ctx, "index:a"))
	_, err = store.GetBlob(ctx, "index:a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
