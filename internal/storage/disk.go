package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkordes/campusride/internal/domain"
)

// DiskStore writes objects under a local directory. Files are served by
// mounting http.FileServer(http.Dir(root)) at the path baseURL points to.
type DiskStore struct {
	root    string
	baseURL string
}

// NewDiskStore creates root if needed.
func NewDiskStore(root, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage.NewDiskStore: %w", err)
	}
	return &DiskStore{root: root, baseURL: baseURL}, nil
}

// Root returns the directory objects are written to.
func (s *DiskStore) Root() string { return s.root }

// Upload writes u to root/key via a temp file so readers never see a
// partial object.
func (s *DiskStore) Upload(ctx context.Context, key string, u domain.Upload) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", fmt.Errorf("storage.DiskStore.Upload: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("storage.DiskStore.Upload: %w", err)
	}

	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("storage.DiskStore.Upload: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("storage.DiskStore.Upload: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := io.Copy(tmp, u.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("storage.DiskStore.Upload: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage.DiskStore.Upload: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("storage.DiskStore.Upload: rename: %w", err)
	}
	return joinURL(s.baseURL, key), nil
}
