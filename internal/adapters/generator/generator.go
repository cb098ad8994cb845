// Package generator adapts the image-generation provider into the two
// operations the eval orchestrator needs: text-to-image and image-edit.
// Both are retryable RPCs whose failures are categorized by the shared
// openaiclient so the orchestrator can decide retry vs. degrade vs.
// terminalize.
package generator

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"math/rand"

	"github.com/fogleman/gg"

	"github.com/choiwab/promptsmith/internal/adapters/openaiclient"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
)

// Generator is the interface the eval orchestrator depends on. An error from
// a model call is an *openaiclient.Error carrying a FailureCategory; a failure
// to encode the placeholder PNG is returned as a plain wrapped error. Image
// bytes and a nil error signal success, with degraded=true marking a
// deterministic-placeholder fallback rather than a real model call.
type Generator interface {
	TextToImage(ctx context.Context, prompt string) (png []byte, degraded bool, err error)
	ImageEdit(ctx context.Context, prompt string, base []byte) (png []byte, degraded bool, err error)
}

type adapter struct {
	client *openaiclient.Client
	log    *logger.Logger
}

func New(client *openaiclient.Client, log *logger.Logger) Generator {
	return &adapter{client: client, log: log.With("adapter", "generator")}
}

func (a *adapter) TextToImage(ctx context.Context, prompt string) ([]byte, bool, error) {
	if !a.client.Enabled() {
		png, err := placeholderImage(prompt, nil)
		return png, true, err
	}
	png, err := a.client.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, false, err
	}
	return png, false, nil
}

func (a *adapter) ImageEdit(ctx context.Context, prompt string, base []byte) ([]byte, bool, error) {
	if !a.client.Enabled() {
		png, err := placeholderImage(prompt, base)
		return png, true, err
	}
	png, err := a.client.EditImage(ctx, prompt, base)
	if err != nil {
		return nil, false, err
	}
	return png, false, nil
}

// placeholderImage renders a deterministic gradient card labeled with the
// prompt, standing in for a real generation when no API key is configured
// so the rest of the pipeline keeps functioning in a visibly degraded mode.
func placeholderImage(prompt string, seedBytes []byte) ([]byte, error) {
	const size = 512
	seed := int64(len(prompt))
	for _, b := range seedBytes {
		seed = seed*31 + int64(b)
	}
	r := rand.New(rand.NewSource(seed))
	base := color.RGBA{
		R: uint8(40 + r.Intn(120)),
		G: uint8(40 + r.Intn(120)),
		B: uint8(40 + r.Intn(120)),
		A: 255,
	}

	dc := gg.NewContext(size, size)
	dc.SetColor(base)
	dc.Clear()
	for y := 0; y < size; y++ {
		t := float64(y) / float64(size)
		shade := color.RGBA{
			R: uint8(float64(base.R) * (1 - 0.4*t)),
			G: uint8(float64(base.G) * (1 - 0.4*t)),
			B: uint8(float64(base.B) * (1 - 0.4*t)),
			A: 255,
		}
		dc.SetColor(shade)
		dc.DrawLine(0, float64(y), float64(size), float64(y))
		dc.Stroke()
	}

	dc.SetColor(color.White)
	label := prompt
	if len(label) > 80 {
		label = label[:77] + "..."
	}
	dc.DrawStringWrapped(label, 24, 24, 0, 0, float64(size-48), 1.4, gg.AlignLeft)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("generator: encode placeholder png: %w", err)
	}
	return buf.Bytes(), nil
}
