package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LocalStore writes uploads to a directory on disk and serves them from a
// base URL path. Default backend for development.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: baseURL}, nil
}

var _ Store = (*LocalStore)(nil)

// Dir returns the directory files are stored in, for the static file route.
func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Upload(_ context.Context, name, contentType string, r io.Reader, size int64) (Object, error) {
	// Unique name; keep the extension so served files get a sensible type.
	filename := strconv.FormatInt(time.Now().UnixNano(), 10) + filepath.Ext(name)
	destPath := filepath.Join(s.dir, filename)

	out, err := os.Create(destPath)
	if err != nil {
		return Object{}, fmt.Errorf("create upload file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, r)
	if err != nil {
		os.Remove(destPath)
		return Object{}, fmt.Errorf("write upload file: %w", err)
	}
	if size > 0 && written != size {
		os.Remove(destPath)
		return Object{}, fmt.Errorf("short write: got %d bytes, want %d", written, size)
	}

	return Object{
		URL:      s.baseURL + "/" + filename,
		Name:     name,
		Size:     written,
		MimeType: contentType,
	}, nil
}
