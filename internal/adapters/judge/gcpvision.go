package judge

import (
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
)

// StructuralProbe is an alternative structural-drift signal that does not
// depend on the OpenAI vision model. It is wired in behind
// vision_structural_provider=gcp so a deployment without OpenAI vision
// access (or one that wants a second, independent signal) can still produce
// a vision_structural_score.
type StructuralProbe interface {
	StructuralScore(ctx context.Context, baselineImg, candidateImg []byte) (float64, map[string]interface{}, error)
}

// GCPVisionProbe feeds SAFE_SEARCH and label annotations for both images
// into a simple structural-drift heuristic: label-set overlap approximates
// subject/style drift, and a SAFE_SEARCH delta is folded into the
// explanation for audit purposes. It never replaces the semantic signal;
// it only ever contributes the vision_structural_score term.
type GCPVisionProbe struct {
	client *vision.ImageAnnotatorClient
}

func NewGCPVisionProbe(client *vision.ImageAnnotatorClient) *GCPVisionProbe {
	return &GCPVisionProbe{client: client}
}

func (p *GCPVisionProbe) StructuralScore(ctx context.Context, baselineImg, candidateImg []byte) (float64, map[string]interface{}, error) {
	baseLabels, baseSafe, err := p.annotate(ctx, baselineImg)
	if err != nil {
		return 0, nil, fmt.Errorf("judge: gcp vision annotate baseline: %w", err)
	}
	candLabels, candSafe, err := p.annotate(ctx, candidateImg)
	if err != nil {
		return 0, nil, fmt.Errorf("judge: gcp vision annotate candidate: %w", err)
	}

	overlap := labelOverlap(baseLabels, candLabels)
	score := round4(1 - overlap)

	explanation := map[string]interface{}{
		"provider":              "gcp_vision",
		"baseline_labels":       baseLabels,
		"candidate_labels":      candLabels,
		"label_overlap":         overlap,
		"baseline_safe_search":  baseSafe,
		"candidate_safe_search": candSafe,
	}
	return score, explanation, nil
}

func (p *GCPVisionProbe) annotate(ctx context.Context, img []byte) ([]string, string, error) {
	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: img},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_LABEL_DETECTION, MaxResults: 10},
			{Type: visionpb.Feature_SAFE_SEARCH_DETECTION},
		},
	}
	resp, err := p.client.AnnotateImage(ctx, req)
	if err != nil {
		return nil, "", err
	}
	labels := make([]string, 0, len(resp.GetLabelAnnotations()))
	for _, a := range resp.GetLabelAnnotations() {
		labels = append(labels, a.GetDescription())
	}
	safe := "unknown"
	if s := resp.GetSafeSearchAnnotation(); s != nil {
		safe = s.GetAdult().String()
	}
	return labels, safe, nil
}

func labelOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, l := range a {
		set[l] = struct{}{}
	}
	shared := 0
	for _, l := range b {
		if _, ok := set[l]; ok {
			shared++
		}
	}
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	return float64(shared) / float64(denom)
}

func round4(v float64) float64 {
	return float64(int(v*10000+0.5)) / 10000
}
