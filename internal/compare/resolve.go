package compare

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/choiwab/promptsmith/internal/blobstore"
	"github.com/choiwab/promptsmith/internal/domain"
)

// resolveCommitImage returns the bytes of a commit's first image. Local
// blob-store keys are read directly; commits whose stored path is itself a
// remote http(s) URL (e.g. an externally-imported commit) are downloaded
// once and cached under cacheDir by content hash of the URL, mirroring the
// original implementation's remote-resolution-and-caching behavior.
func resolveCommitImage(ctx context.Context, blobs blobstore.BlobStore, cacheDir string, commit *domain.Commit) ([]byte, error) {
	paths := commit.ImagePaths()
	if len(paths) == 0 {
		return nil, fmt.Errorf("compare: commit %q has no images", commit.CommitID)
	}
	ref := paths[0]

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return downloadRemoteImage(ctx, cacheDir, ref)
	}
	return blobs.Read(ctx, ref)
}

func downloadRemoteImage(ctx context.Context, cacheDir, url string) ([]byte, error) {
	sum := sha1.Sum([]byte(url))
	cacheKey := hex.EncodeToString(sum[:])
	cachePath := filepath.Join(cacheDir, cacheKey+".img")

	if data, err := os.ReadFile(cachePath); err == nil {
		return data, nil
	}

	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("compare: build remote image request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("compare: fetch remote image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("compare: remote image fetch status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("compare: read remote image body: %w", err)
	}

	if err := os.MkdirAll(cacheDir, 0o755); err == nil {
		_ = os.WriteFile(cachePath, data, 0o644)
	}
	return data, nil
}
