// Package pixelengine computes a deterministic pixel-level drift score
// between two images and renders a heatmap/overlay artifact pair. It is a
// pure function over two byte streams: identical inputs always produce an
// identical score and byte-identical PNG artifacts.
package pixelengine

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
)

const (
	ssimC1 = 0.0001
	ssimC2 = 0.0009
	bins   = 64
)

// Result is the output of Compare: a normalized diff score plus the
// rendered heatmap and overlay PNGs ready to persist as report artifacts.
type Result struct {
	PixelDiffScore float64
	HeatmapPNG     []byte
	OverlayPNG     []byte
}

// Compare decodes both images, resizes the candidate to the baseline's
// dimensions, and computes pixel_diff_score = 0.65*ssim_diff +
// 0.35*hist_distance, clamped to [0,1].
func Compare(baselineBytes, candidateBytes []byte) (Result, error) {
	baseline, _, err := image.Decode(bytes.NewReader(baselineBytes))
	if err != nil {
		return Result{}, fmt.Errorf("pixelengine: decode baseline: %w", err)
	}
	candidate, _, err := image.Decode(bytes.NewReader(candidateBytes))
	if err != nil {
		return Result{}, fmt.Errorf("pixelengine: decode candidate: %w", err)
	}

	bounds := baseline.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	resizedCandidate := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(resizedCandidate, resizedCandidate.Bounds(), candidate, candidate.Bounds(), xdraw.Over, nil)

	baseRGBA := toRGBA(baseline)

	baseNorm := normalize(baseRGBA)
	candNorm := normalize(resizedCandidate)

	diffMap := make([][]float64, h)
	for y := 0; y < h; y++ {
		diffMap[y] = make([]float64, w)
		for x := 0; x < w; x++ {
			bIdx := (y*w + x) * 3
			dr := math.Abs(baseNorm[bIdx] - candNorm[bIdx])
			dg := math.Abs(baseNorm[bIdx+1] - candNorm[bIdx+1])
			db := math.Abs(baseNorm[bIdx+2] - candNorm[bIdx+2])
			diffMap[y][x] = (dr + dg + db) / 3.0
		}
	}

	ssim := globalSSIM(baseNorm, candNorm, w, h)
	ssimDiff := clamp01(1 - ssim)

	histDist := histogramDistance(baseNorm, candNorm, w, h)

	pixelDiffScore := clamp01(0.65*ssimDiff + 0.35*histDist)

	heatmap := createHeatmap(diffMap, w, h)
	overlay := blend(baseRGBA, heatmap, 0.40)

	heatmapPNG, err := encodePNG(heatmap)
	if err != nil {
		return Result{}, err
	}
	overlayPNG, err := encodePNG(overlay)
	if err != nil {
		return Result{}, err
	}

	return Result{
		PixelDiffScore: round4(pixelDiffScore),
		HeatmapPNG:     heatmapPNG,
		OverlayPNG:     overlayPNG,
	}, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// normalize flattens an RGBA image into a row-major [0,1] float slice of
// (r,g,b) triples, dropping alpha.
func normalize(img *image.RGBA) []float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, w*h*3)
	i := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out[i] = float64(r>>8) / 255.0
			out[i+1] = float64(g>>8) / 255.0
			out[i+2] = float64(bl>>8) / 255.0
			i += 3
		}
	}
	return out
}

// globalSSIM computes a single-window SSIM over the grayscale average of
// both images: a simplified, deterministic approximation of windowed SSIM
// suitable for a whole-image drift signal.
func globalSSIM(a, b []float64, w, h int) float64 {
	n := w * h
	grayA := make([]float64, n)
	grayB := make([]float64, n)
	for i := 0; i < n; i++ {
		grayA[i] = (a[i*3] + a[i*3+1] + a[i*3+2]) / 3.0
		grayB[i] = (b[i*3] + b[i*3+1] + b[i*3+2]) / 3.0
	}

	meanA := mean(grayA)
	meanB := mean(grayB)
	varA := variance(grayA, meanA)
	varB := variance(grayB, meanB)
	covAB := covariance(grayA, grayB, meanA, meanB)

	numerator := (2*meanA*meanB + ssimC1) * (2*covAB + ssimC2)
	denominator := (meanA*meanA + meanB*meanB + ssimC1) * (varA + varB + ssimC2)
	if denominator == 0 {
		return 1
	}
	return numerator / denominator
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func variance(v []float64, m float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(v))
}

func covariance(a, b []float64, meanA, meanB float64) float64 {
	if len(a) == 0 {
		return 0
	}
	sum := 0.0
	for i := range a {
		sum += (a[i] - meanA) * (b[i] - meanB)
	}
	return sum / float64(len(a))
}

// histogramDistance computes a 64-bin per-channel L1 histogram distance,
// averaged over the three channels.
func histogramDistance(a, b []float64, w, h int) float64 {
	n := w * h
	var total float64
	for c := 0; c < 3; c++ {
		histA := make([]int, bins)
		histB := make([]int, bins)
		for i := 0; i < n; i++ {
			histA[binIndex(a[i*3+c])]++
			histB[binIndex(b[i*3+c])]++
		}
		var l1 float64
		for k := 0; k < bins; k++ {
			l1 += math.Abs(float64(histA[k]-histB[k])) / float64(n)
		}
		total += 0.5 * l1
	}
	return total / 3.0
}

func binIndex(v float64) int {
	idx := int(v * float64(bins))
	if idx >= bins {
		idx = bins - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// createHeatmap renders R=diff*255, G=0, B=(1-diff)*70 per pixel.
func createHeatmap(diffMap [][]float64, w, h int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := diffMap[y][x]
			out.SetRGBA(x, y, color.RGBA{
				R: uint8(clamp01(d) * 255),
				G: 0,
				B: uint8(clamp01(1-d) * 70),
				A: 255,
			})
		}
	}
	return out
}

// blend composites heatmap over base at the given alpha.
func blend(base *image.RGBA, heatmap *image.RGBA, alpha float64) *image.RGBA {
	b := base.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			br, bg, bb, _ := base.At(x, y).RGBA()
			hr, hg, hb, _ := heatmap.At(x, y).RGBA()
			mix := func(baseC, heatC uint32) uint8 {
				bf := float64(baseC >> 8)
				hf := float64(heatC >> 8)
				return uint8(bf*(1-alpha) + hf*alpha)
			}
			out.SetRGBA(x, y, color.RGBA{
				R: mix(br, hr),
				G: mix(bg, hg),
				B: mix(bb, hb),
				A: 255,
			})
		}
	}
	return out
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("pixelengine: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
