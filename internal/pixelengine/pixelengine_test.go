package pixelengine

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func solidPNG(w, h int, c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func TestCompare_IdenticalImagesScoreNearZero(t *testing.T) {
	img := solidPNG(16, 16, color.RGBA{R: 120, G: 60, B: 200, A: 255})

	result, err := Compare(img, img)
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}
	if result.PixelDiffScore > 0.01 {
		t.Fatalf("expected near-zero diff for identical images, got %v", result.PixelDiffScore)
	}
	if len(result.HeatmapPNG) == 0 || len(result.OverlayPNG) == 0 {
		t.Fatalf("expected non-empty heatmap and overlay artifacts")
	}
}

func TestCompare_OpposingColorsScoreHigh(t *testing.T) {
	black := solidPNG(16, 16, color.RGBA{A: 255})
	white := solidPNG(16, 16, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	result, err := Compare(black, white)
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}
	if result.PixelDiffScore < 0.5 {
		t.Fatalf("expected high diff between black and white images, got %v", result.PixelDiffScore)
	}
}

func TestCompare_ScoreIsDeterministic(t *testing.T) {
	a := solidPNG(20, 12, color.RGBA{R: 10, G: 200, B: 30, A: 255})
	b := solidPNG(20, 12, color.RGBA{R: 250, G: 5, B: 180, A: 255})

	first, err := Compare(a, b)
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}
	second, err := Compare(a, b)
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}
	if first.PixelDiffScore != second.PixelDiffScore {
		t.Fatalf("expected identical inputs to produce identical scores, got %v and %v", first.PixelDiffScore, second.PixelDiffScore)
	}
	if !bytes.Equal(first.HeatmapPNG, second.HeatmapPNG) {
		t.Fatalf("expected identical inputs to produce byte-identical heatmaps")
	}
}

func TestCompare_ScoreClampedToUnitRange(t *testing.T) {
	a := solidPNG(8, 8, color.RGBA{A: 255})
	b := solidPNG(8, 8, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	result, err := Compare(a, b)
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}
	if result.PixelDiffScore < 0 || result.PixelDiffScore > 1 {
		t.Fatalf("expected pixel_diff_score in [0,1], got %v", result.PixelDiffScore)
	}
}

func TestCompare_RejectsUndecodableInput(t *testing.T) {
	_, err := Compare([]byte("not an image"), []byte("also not an image"))
	if err == nil {
		t.Fatalf("expected an error for undecodable image bytes")
	}
}

func TestBinIndex_ClampsToRange(t *testing.T) {
	if got := binIndex(-1); got != 0 {
		t.Fatalf("binIndex(-1) = %d, want 0", got)
	}
	if got := binIndex(2); got != bins-1 {
		t.Fatalf("binIndex(2) = %d, want %d", got, bins-1)
	}
}

func TestClamp01(t *testing.T) {
	if clamp01(-0.5) != 0 {
		t.Fatalf("clamp01(-0.5) should be 0")
	}
	if clamp01(1.5) != 1 {
		t.Fatalf("clamp01(1.5) should be 1")
	}
	if clamp01(0.25) != 0.25 {
		t.Fatalf("clamp01(0.25) should be unchanged")
	}
}
