// Package judge adapts the vision-scoring provider into a single
// vision-score operation returning a strict rubric. A malformed response is
// retried once; further failure surfaces to the caller, which is expected
// to apply the neutral fallback rubric documented in NeutralRubric.
package judge

import (
	"context"
	"errors"
	"fmt"

	"github.com/choiwab/promptsmith/internal/adapters/openaiclient"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
)

// Rubric is the strict JSON shape the vision model returns.
type Rubric struct {
	PromptAdherence          float64  `json:"prompt_adherence"`
	SubjectFidelity          float64  `json:"subject_fidelity"`
	CompositionQuality       float64  `json:"composition_quality"`
	StyleCoherence           float64  `json:"style_coherence"`
	TechnicalArtifactPenalty float64  `json:"technical_artifact_penalty"`
	Confidence               float64  `json:"confidence"`
	FailureTags              []string `json:"failure_tags"`
	StrengthTags             []string `json:"strength_tags"`
	Rationale                string   `json:"rationale"`
}

// NeutralRubric is the deterministic fallback applied when the judge
// exhausts its retry or the adapter is disabled (no API key configured).
func NeutralRubric() Rubric {
	return Rubric{
		PromptAdherence:          0.5,
		SubjectFidelity:          0.5,
		CompositionQuality:       0.5,
		StyleCoherence:           0.5,
		TechnicalArtifactPenalty: 0.5,
		Confidence:               0.3,
		FailureTags:              []string{},
		StrengthTags:             []string{},
		Rationale:                "",
	}
}

type Judge interface {
	// VisionScore returns a rubric for the given image against its
	// generating prompt context. err is non-nil only once the single
	// malformed-JSON retry is exhausted or the request otherwise fails.
	VisionScore(ctx context.Context, basePrompt, variantPrompt, objectivePreset string, imageBytes []byte) (Rubric, error)
}

type adapter struct {
	client *openaiclient.Client
	model  string
	log    *logger.Logger
}

func New(client *openaiclient.Client, model string, log *logger.Logger) Judge {
	return &adapter{client: client, model: model, log: log.With("adapter", "judge")}
}

var rubricSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"prompt_adherence":           map[string]any{"type": "number"},
		"subject_fidelity":           map[string]any{"type": "number"},
		"composition_quality":        map[string]any{"type": "number"},
		"style_coherence":            map[string]any{"type": "number"},
		"technical_artifact_penalty": map[string]any{"type": "number"},
		"confidence":                 map[string]any{"type": "number"},
		"failure_tags":               map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"strength_tags":              map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"rationale":                  map[string]any{"type": "string"},
	},
	"required": []string{
		"prompt_adherence", "subject_fidelity", "composition_quality",
		"style_coherence", "technical_artifact_penalty", "confidence",
		"failure_tags", "strength_tags", "rationale",
	},
	"additionalProperties": false,
}

const judgeSystemPrompt = "You are a meticulous visual QA rater for AI-generated images. Score strictly and return only the requested JSON."

func (a *adapter) VisionScore(ctx context.Context, basePrompt, variantPrompt, objectivePreset string, imageBytes []byte) (Rubric, error) {
	if !a.client.Enabled() {
		return Rubric{}, &openaiclient.Error{Category: openaiclient.FailureMalformedOutput, Err: errors.New("judge: no api key configured")}
	}

	user := buildUserPrompt(basePrompt, variantPrompt, objectivePreset)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		obj, err := a.client.GenerateJSONWithImage(ctx, a.model, judgeSystemPrompt, user, "visual_rubric", rubricSchema, imageBytes, "image/png")
		if err != nil {
			lastErr = err
			var adapterErr *openaiclient.Error
			if errors.As(err, &adapterErr) && adapterErr.Category != openaiclient.FailureMalformedOutput {
				return Rubric{}, err
			}
			continue
		}
		rubric, parseErr := decodeRubric(obj)
		if parseErr != nil {
			lastErr = &openaiclient.Error{Category: openaiclient.FailureMalformedOutput, Err: parseErr}
			continue
		}
		return rubric, nil
	}
	return Rubric{}, lastErr
}

func decodeRubric(obj map[string]any) (Rubric, error) {
	r := Rubric{}
	var ok bool
	if r.PromptAdherence, ok = floatField(obj, "prompt_adherence"); !ok {
		return r, fmt.Errorf("judge: missing prompt_adherence")
	}
	if r.SubjectFidelity, ok = floatField(obj, "subject_fidelity"); !ok {
		return r, fmt.Errorf("judge: missing subject_fidelity")
	}
	if r.CompositionQuality, ok = floatField(obj, "composition_quality"); !ok {
		return r, fmt.Errorf("judge: missing composition_quality")
	}
	if r.StyleCoherence, ok = floatField(obj, "style_coherence"); !ok {
		return r, fmt.Errorf("judge: missing style_coherence")
	}
	if r.TechnicalArtifactPenalty, ok = floatField(obj, "technical_artifact_penalty"); !ok {
		return r, fmt.Errorf("judge: missing technical_artifact_penalty")
	}
	if r.Confidence, ok = floatField(obj, "confidence"); !ok {
		return r, fmt.Errorf("judge: missing confidence")
	}
	r.FailureTags = stringSliceField(obj, "failure_tags")
	r.StrengthTags = stringSliceField(obj, "strength_tags")
	if s, ok := obj["rationale"].(string); ok {
		r.Rationale = s
	}
	return r, nil
}

func floatField(obj map[string]any, key string) (float64, bool) {
	v, ok := obj[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func stringSliceField(obj map[string]any, key string) []string {
	raw, ok := obj[key].([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func buildUserPrompt(basePrompt, variantPrompt, objectivePreset string) string {
	return "base_prompt: " + basePrompt + "\nvariant_prompt: " + variantPrompt + "\nobjective_preset: " + objectivePreset +
		"\nScore this image against the variant prompt. Return prompt_adherence, subject_fidelity, composition_quality, style_coherence, technical_artifact_penalty, confidence all in [0,1], plus failure_tags, strength_tags, and a short rationale."
}
