package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edumedia/logger"
)

func newTestStore(t *testing.T) (*LocalStore, string) {
	root := t.TempDir()
	store, err := NewLocalStore(root, "/uploads/", logger.NewNop())
	require.NoError(t, err)
	return store, root
}

func TestStoredName(t *testing.T) {
	a := StoredName("Lecture Notes.PDF")
	b := StoredName("Lecture Notes.PDF")

	assert.True(t, strings.HasSuffix(a, ".pdf"))
	assert.NotEqual(t, a, b)
	// the fingerprint part is stable for the same original name
	assert.Equal(t, a[37:], b[37:])
}

func TestLocalStorePutDelete(t *testing.T) {
	store, root := newTestStore(t)
	ctx := context.Background()

	obj, err := store.Put(ctx, "pdfs/article/a1", "notes.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, int64(8), obj.Size)
	assert.True(t, strings.HasPrefix(obj.Key, "pdfs/article/a1/"))
	assert.Equal(t, "/uploads/"+obj.Key, obj.URL)

	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(obj.Key)))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, obj.Key))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(obj.Key)))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is not an error
	assert.NoError(t, store.Delete(ctx, obj.Key))
}

func TestLocalStoreDeletePrefix(t *testing.T) {
	store, root := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Put(ctx, "gallery/f1", "img.jpg", strings.NewReader("x"))
		require.NoError(t, err)
	}
	keep, err := store.Put(ctx, "gallery/f2", "img.jpg", strings.NewReader("y"))
	require.NoError(t, err)

	require.NoError(t, store.DeletePrefix(ctx, "gallery/f1"))

	_, err = os.Stat(filepath.Join(root, "gallery", "f1"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(keep.Key)))
	assert.NoError(t, err)
}

func TestCleanKeyStaysInsideRoot(t *testing.T) {
	key, err := cleanKey("../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, "etc/passwd", key)

	_, err = cleanKey("/")
	assert.Error(t, err)
}
