package blobstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/choiwab/promptsmith/internal/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestFilesystemStore_WriteThenReadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store := NewFilesystemStore(dir, "", testLogger(t))

	url, err := store.Write(context.Background(), "projects/p1/commits/c1/image.png", []byte("hello"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if url != filepath.Join(dir, "projects/p1/commits/c1/image.png") {
		t.Fatalf("unexpected url %q", url)
	}

	data, err := store.Read(context.Background(), "projects/p1/commits/c1/image.png")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("Read returned %q, want %q", data, "hello")
	}
}

func TestFilesystemStore_WriteWithPublicBaseReturnsPrefixedURL(t *testing.T) {
	dir := t.TempDir()
	store := NewFilesystemStore(dir, "https://cdn.example.com/artifacts", testLogger(t))

	url, err := store.Write(context.Background(), "reports/r1/overlay.png", []byte("x"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := "https://cdn.example.com/artifacts/reports/r1/overlay.png"
	if url != want {
		t.Fatalf("url = %q, want %q", url, want)
	}
}

func TestFilesystemStore_ReadMissingKeyErrors(t *testing.T) {
	store := NewFilesystemStore(t.TempDir(), "", testLogger(t))
	if _, err := store.Read(context.Background(), "does/not/exist.png"); err == nil {
		t.Fatalf("expected an error reading a missing key")
	}
}

func TestFilesystemStore_ResolveLocalPath(t *testing.T) {
	dir := t.TempDir()
	store := NewFilesystemStore(dir, "", testLogger(t))

	if _, ok := store.ResolveLocalPath("missing.png"); ok {
		t.Fatalf("expected ResolveLocalPath to report missing key as absent")
	}

	if _, err := store.Write(context.Background(), "present.png", []byte("data")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	path, ok := store.ResolveLocalPath("present.png")
	if !ok {
		t.Fatalf("expected ResolveLocalPath to find the written key")
	}
	if path != filepath.Join(dir, "present.png") {
		t.Fatalf("unexpected resolved path %q", path)
	}
}
