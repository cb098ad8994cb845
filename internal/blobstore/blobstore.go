// Package blobstore addresses opaque image bytes by a stable path and
// returns a public URL for each write. All writes are atomic
// (write-temp-then-rename for the filesystem backend, single PUT for the
// object-storage backend).
package blobstore

import "context"

// BlobStore is the interface the compare and eval orchestrators use to
// persist generated/edited image bytes and report artifacts.
type BlobStore interface {
	// Write stores data at key and returns a public (or locally-servable)
	// URL for it.
	Write(ctx context.Context, key string, data []byte) (url string, err error)
	// Read fetches bytes previously written at key.
	Read(ctx context.Context, key string) ([]byte, error)
	// ResolveLocalPath returns the on-disk path for key if the backend is
	// filesystem-based, so adapters can avoid a network round-trip when the
	// image is already local. ok is false for remote-only backends.
	ResolveLocalPath(key string) (path string, ok bool)
}

// CommitImageKey builds the canonical storage key for a commit's first
// (and, for this spec, only) image.
func CommitImageKey(commitID, ext string) string {
	if ext == "" {
		ext = "png"
	}
	return commitID + "/img_01." + ext
}

// ReportArtifactKey builds the canonical storage key for a comparison
// report's heatmap or overlay artifact.
func ReportArtifactKey(reportID, name string) string {
	return reportID + "/" + name + ".png"
}
