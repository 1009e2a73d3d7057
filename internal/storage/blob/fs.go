package blob

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"

	"github.com/xenking/catalog-service/internal/domain/product"
)

var _ product.BlobStore = (*FS)(nil)

// FS stores blobs as files in a single directory.
type FS struct {
	dir string
}

// NewFS returns an FS rooted at dir, creating the directory if needed.
func NewFS(dir string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob directory %q: %w", dir, err)
	}
	return &FS{dir: dir}, nil
}

// Dir returns the root directory.
func (s *FS) Dir() string {
	return s.dir
}

// Put writes content to a temporary file and renames it into place, so a
// key never refers to a partially written blob.
func (s *FS) Put(ctx context.Context, content io.Reader, ext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp blob: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, content); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("writing blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing blob: %w", err)
	}

	key := newKey(ext)
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, key)); err != nil {
		return "", fmt.Errorf("storing blob %q: %w", key, err)
	}
	return key, nil
}

// Delete removes the blob. A missing blob is not an error.
func (s *FS) Delete(_ context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting blob %q: %w", key, err)
	}
	return nil
}

// Open returns a reader for the blob.
func (s *FS) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("opening blob %q: %w", key, err)
	}
	return f, nil
}
