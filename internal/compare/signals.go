package compare

import (
	"context"
	"errors"
	"fmt"

	"github.com/choiwab/promptsmith/internal/adapters/openaiclient"
)

var semanticSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"identity_similarity": map[string]any{"type": "number"},
	},
	"required":             []string{"identity_similarity"},
	"additionalProperties": false,
}

const semanticSystemPrompt = "You compare two images for subject and identity similarity. Return only the requested JSON with a single float in [0,1], higher meaning more similar."

// semanticSimilarity asks strictly for a single similarity float; one retry
// on malformed output.
func semanticSimilarity(ctx context.Context, client *openaiclient.Client, model string, baselineImg, candidateImg []byte) (float64, error) {
	if !client.Enabled() {
		return 0, &openaiclient.Error{Category: openaiclient.FailureMalformedOutput, Err: errors.New("compare: no api key configured")}
	}
	user := "The first image is the baseline. The second image is the candidate. Rate identity/subject similarity between them."
	images := []openaiclient.ImageInput{
		{Bytes: baselineImg, MimeType: "image/png"},
		{Bytes: candidateImg, MimeType: "image/png"},
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		obj, err := client.GenerateJSONWithImages(ctx, model, semanticSystemPrompt, user, "semantic_similarity", semanticSchema, images)
		if err != nil {
			lastErr = err
			var adapterErr *openaiclient.Error
			if errors.As(err, &adapterErr) && adapterErr.Category != openaiclient.FailureMalformedOutput {
				return 0, err
			}
			continue
		}
		v, ok := obj["identity_similarity"].(float64)
		if !ok {
			lastErr = &openaiclient.Error{Category: openaiclient.FailureMalformedOutput, Err: fmt.Errorf("missing identity_similarity")}
			continue
		}
		return v, nil
	}
	return 0, lastErr
}

type visionStructural struct {
	FacialStructureChanged bool
	LightingShift          string
	StyleDrift             string
	Score                  float64
}

var visionStructuralSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"facial_structure_changed": map[string]any{"type": "boolean"},
		"lighting_shift":           map[string]any{"type": "string", "enum": []string{"none", "low", "moderate", "high"}},
		"style_drift":              map[string]any{"type": "string", "enum": []string{"low", "moderate", "high"}},
		"vision_structural_score":  map[string]any{"type": "number"},
	},
	"required":             []string{"facial_structure_changed", "lighting_shift", "style_drift", "vision_structural_score"},
	"additionalProperties": false,
}

const visionStructuralSystemPrompt = "You assess structural drift between a baseline and candidate image: facial structure, lighting, and style. Return only the requested JSON."

func visionStructuralScore(ctx context.Context, client *openaiclient.Client, model string, baselineImg, candidateImg []byte) (visionStructural, error) {
	if !client.Enabled() {
		return visionStructural{}, &openaiclient.Error{Category: openaiclient.FailureMalformedOutput, Err: errors.New("compare: no api key configured")}
	}
	user := "The first image is the baseline. The second image is the candidate. Assess structural drift of the candidate relative to the baseline."
	images := []openaiclient.ImageInput{
		{Bytes: baselineImg, MimeType: "image/png"},
		{Bytes: candidateImg, MimeType: "image/png"},
	}
	obj, err := client.GenerateJSONWithImages(ctx, model, visionStructuralSystemPrompt, user, "vision_structural", visionStructuralSchema, images)
	if err != nil {
		return visionStructural{}, err
	}
	score, ok := obj["vision_structural_score"].(float64)
	if !ok {
		return visionStructural{}, &openaiclient.Error{Category: openaiclient.FailureMalformedOutput, Err: fmt.Errorf("missing vision_structural_score")}
	}
	changed, _ := obj["facial_structure_changed"].(bool)
	lighting, _ := obj["lighting_shift"].(string)
	style, _ := obj["style_drift"].(string)
	return visionStructural{
		FacialStructureChanged: changed,
		LightingShift:          lighting,
		StyleDrift:             style,
		Score:                  score,
	}, nil
}
