package app

import (
	"context"
	"fmt"

	"github.com/choiwab/promptsmith/internal/blobstore"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
)

// newBlobStore selects the object-storage backend per cfg.ObjectStorageMode,
// mirroring the teacher's storage_provider mode switch.
func newBlobStore(ctx context.Context, cfg Config, log *logger.Logger) (blobstore.BlobStore, error) {
	switch cfg.ObjectStorageMode {
	case "gcs":
		return blobstore.NewGCSStore(ctx, cfg.StorageBucket, cfg.StoragePrefix, "", cfg.StorageEmulatorHost, log)
	case "filesystem", "":
		return blobstore.NewFilesystemStore(cfg.ImageDir, "", log), nil
	default:
		return nil, fmt.Errorf("app: unknown OBJECT_STORAGE_MODE %q", cfg.ObjectStorageMode)
	}
}
