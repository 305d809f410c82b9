package blob_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatd/internal/blob"
)

func TestLocalStoreUpload(t *testing.T) {
	dir := t.TempDir()
	store, err := blob.NewLocalStore(dir, "http://localhost:8000/uploads")
	require.NoError(t, err)

	content := "fake image bytes"
	obj, err := store.Upload(context.Background(), "photo.png", "image/png", strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	assert.Equal(t, "photo.png", obj.Name)
	assert.Equal(t, "image/png", obj.MimeType)
	assert.EqualValues(t, len(content), obj.Size)
	assert.True(t, strings.HasPrefix(obj.URL, "http://localhost:8000/uploads/"))
	assert.True(t, strings.HasSuffix(obj.URL, ".png"))

	// the stored file is readable under the returned name
	stored := filepath.Base(obj.URL)
	b, err := os.ReadFile(filepath.Join(dir, stored))
	require.NoError(t, err)
	assert.Equal(t, content, string(b))
}

func TestLocalStoreShortWrite(t *testing.T) {
	store, err := blob.NewLocalStore(t.TempDir(), "http://localhost:8000/uploads")
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "f.bin", "application/octet-stream", strings.NewReader("abc"), 10)
	assert.Error(t, err)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "partial file should be removed")
}
