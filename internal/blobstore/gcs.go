package blobstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/choiwab/promptsmith/internal/pkg/logger"
)

// GCSStore is the alternate object-storage-backed BlobStore, selected via
// OBJECT_STORAGE_MODE=gcs. It has no local filesystem fallback, so
// ResolveLocalPath always reports ok=false.
type GCSStore struct {
	log        *logger.Logger
	client     *storage.Client
	bucket     string
	prefix     string
	publicBase string
}

// NewGCSStore dials the Cloud Storage client, optionally pointed at an
// emulator (emulatorHost non-empty) for local/dev use.
func NewGCSStore(ctx context.Context, bucket, prefix, publicBase, emulatorHost string, log *logger.Logger) (*GCSStore, error) {
	var opts []option.ClientOption
	if emulatorHost != "" {
		opts = append(opts, option.WithEndpoint(emulatorHost), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("blobstore: create gcs client: %w", err)
	}
	return &GCSStore{
		log:        log,
		client:     client,
		bucket:     bucket,
		prefix:     strings.Trim(prefix, "/"),
		publicBase: publicBase,
	}, nil
}

func (s *GCSStore) objectName(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *GCSStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := s.client.Bucket(s.bucket).Object(s.objectName(key))
	w := obj.NewWriter(ctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("blobstore: write gcs object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("blobstore: close gcs writer: %w", err)
	}
	if s.log != nil {
		s.log.Debug("blob written to gcs", "bucket", s.bucket, "key", key)
	}
	if s.publicBase != "" {
		return s.publicBase + "/" + key, nil
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, s.objectName(key)), nil
}

func (s *GCSStore) Read(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.objectName(key)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("blobstore: open gcs reader: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *GCSStore) ResolveLocalPath(key string) (string, bool) {
	return "", false
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(key)
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	default:
		return ""
	}
}
