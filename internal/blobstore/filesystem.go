package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/choiwab/promptsmith/internal/pkg/logger"
)

// FilesystemStore is the default BlobStore backend. Writes go through a
// temp file in the destination directory followed by an atomic rename, so
// a reader never observes a partially-written blob.
type FilesystemStore struct {
	baseDir   string
	publicURL string
	log       *logger.Logger
}

// NewFilesystemStore roots all keys under baseDir. publicBase, if non-empty,
// is prefixed to keys to build the returned URL (e.g. an nginx static
// mount); otherwise the file path (baseDir joined with the key) is returned
// as the URL.
func NewFilesystemStore(baseDir, publicBase string, log *logger.Logger) *FilesystemStore {
	return &FilesystemStore{baseDir: baseDir, publicURL: publicBase, log: log}
}

func (s *FilesystemStore) fullPath(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}

func (s *FilesystemStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	dest := s.fullPath(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("blobstore: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return "", fmt.Errorf("blobstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("blobstore: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("blobstore: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("blobstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("blobstore: rename into place: %w", err)
	}
	if s.log != nil {
		s.log.Debug("blob written", "key", key, "path", dest)
	}
	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}
	return dest, nil
}

func (s *FilesystemStore) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.fullPath(key))
	if err != nil {
		return nil, fmt.Errorf("blobstore: read %q: %w", key, err)
	}
	return data, nil
}

func (s *FilesystemStore) ResolveLocalPath(key string) (string, bool) {
	path := s.fullPath(key)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}
