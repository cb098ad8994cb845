package generator

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/choiwab/promptsmith/internal/adapters/openaiclient"
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

func disabledClient(t *testing.T) *openaiclient.Client {
	t.Helper()
	return openaiclient.New(openaiclient.Config{}, testLogger(t))
}

func TestTextToImage_FallsBackToPlaceholderWhenDisabled(t *testing.T) {
	g := New(disabledClient(t), testLogger(t))
	raw, degraded, err := g.TextToImage(context.Background(), "a red ball on a table")
	if err != nil {
		t.Fatalf("TextToImage: %v", err)
	}
	if !degraded {
		t.Fatalf("expected degraded=true with a disabled client")
	}
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
		t.Fatalf("expected a decodable placeholder PNG: %v", err)
	}
}

func TestImageEdit_FallsBackToPlaceholderWhenDisabled(t *testing.T) {
	g := New(disabledClient(t), testLogger(t))
	raw, degraded, err := g.ImageEdit(context.Background(), "add sunglasses", []byte("base-image-bytes"))
	if err != nil {
		t.Fatalf("ImageEdit: %v", err)
	}
	if !degraded {
		t.Fatalf("expected degraded=true with a disabled client")
	}
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
		t.Fatalf("expected a decodable placeholder PNG: %v", err)
	}
}

func TestPlaceholderImage_IsDeterministicForSameInputs(t *testing.T) {
	a, err := placeholderImage("a red ball", nil)
	if err != nil {
		t.Fatalf("placeholderImage: %v", err)
	}
	b, err := placeholderImage("a red ball", nil)
	if err != nil {
		t.Fatalf("placeholderImage: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("expected identical prompts to render byte-identical placeholders")
	}
}

func TestPlaceholderImage_DiffersWithSeedBytes(t *testing.T) {
	a, err := placeholderImage("a red ball", []byte("seed-a"))
	if err != nil {
		t.Fatalf("placeholderImage: %v", err)
	}
	b, err := placeholderImage("a red ball", []byte("seed-b"))
	if err != nil {
		t.Fatalf("placeholderImage: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("expected different seed bytes to change the rendered placeholder")
	}
}
