package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/hybridrag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "nested", "db")
	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	defer backend.Close()

	info, err := os.Stat(tmpDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_FilePath(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(tmpFile, []byte("x"), 0o600))

	_, err := OpenBackend(tmpFile, false)
	assert.Error(t, err)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())
	assert.NoError(t, backend.Close())
}

func TestBlobStore_PutGetDelete(t *testing.T) {
	store, err := NewMemoryBlobStore()
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	_, err = store.GetBlob(ctx, "index:a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.PutBlob(ctx, "index:a", []byte("first")))
	require.NoError(t, store.PutBlob(ctx, "index:a", []byte("second")))

	data, err := store.GetBlob(ctx, "index:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	require.NoError(t, store.DeleteBlob(ctx, "index:a"))
	require.NoError(t, store.DeleteBlob(ctx, "index:a"))
	_, err = store.GetBlob(ctx, "index:a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBlobStore_List(t *testing.T) {
	store, err := NewMemoryBlobStore()
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	for _, k := range []string{"index:b", "index:a", "other:c"} {
		require.NoError(t, store.PutBlob(ctx, k, []byte(k)))
	}

	keys, err := store.ListBlobs(ctx, "index:")
	require.NoError(t, err)
	assert.Equal(t, []string{"index:a", "index:b"}, keys)

	all, err := store.ListBlobs(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestBlobStore_InvalidKeyAndClosed(t *testing.T) {
	store, err := NewMemoryBlobStore()
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, store.PutBlob(ctx, "", []byte("x")), storage.ErrInvalidKey)

	require.NoError(t, store.Close())
	_, err = store.GetBlob(ctx, "index:a")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestNewBlobStore_SharedBackend(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	store, err := NewBlobStore(backend)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.False(t, backend.IsClosed())

	_, err = NewBlobStore(nil)
	assert.Error(t, err)
}
