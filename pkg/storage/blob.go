package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Aik0o1/cashback-system/pkg/config"
	"github.com/google/uuid"
)

// BlobStore persists uploaded product images and hands back a public URL.
type BlobStore struct {
	dir     string
	baseURL string
}

// NewBlobStore creates the upload directory if needed
func NewBlobStore(cfg *config.StorageConfig) (*BlobStore, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &BlobStore{
		dir:     cfg.UploadDir,
		baseURL: cfg.BaseURL,
	}, nil
}

// Store writes the blob under a random name, keeping the original extension,
// and returns the URL the stored file is served from.
func (s *BlobStore) Store(originalName string, r io.Reader) (string, error) {
	name := uuid.New().String() + filepath.Ext(originalName)

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create blob file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("failed to write blob file: %w", err)
	}

	return s.baseURL + "/" + name, nil
}

// Dir returns the directory blobs are written to
func (s *BlobStore) Dir() string {
	return s.dir
}
