// Package blobstore keeps the original uploaded files. The pipeline only
// writes and deletes blobs; it never reads them back after text extraction.
package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store is the object-storage collaborator.
type Store interface {
	// Put saves the payload under the file's identity and returns a
	// retrievable URL.
	Put(ctx context.Context, fileID uuid.UUID, filename string, data []byte) (string, error)
	// Delete removes the blob for fileID. Deleting an unknown blob is not an
	// error.
	Delete(ctx context.Context, fileID uuid.UUID) error
}

// LocalStore writes blobs to a directory on the local filesystem.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Put(_ context.Context, fileID uuid.UUID, filename string, data []byte) (string, error) {
	path := s.blobPath(fileID, filepath.Ext(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve blob path: %w", err)
	}
	return "file://" + abs, nil
}

func (s *LocalStore) Delete(_ context.Context, fileID uuid.UUID) error {
	matches, err := filepath.Glob(filepath.Join(s.dir, fileID.String()+".*"))
	if err != nil {
		return fmt.Errorf("find blob: %w", err)
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove blob: %w", err)
		}
	}
	return nil
}

func (s *LocalStore) blobPath(fileID uuid.UUID, ext string) string {
	if ext == "" {
		ext = ".bin"
	}
	return filepath.Join(s.dir, fileID.String()+ext)
}

var _ Store = (*LocalStore)(nil)
