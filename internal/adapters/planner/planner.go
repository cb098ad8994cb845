// Package planner adapts the variant-planning provider: given a base
// prompt, objective preset, and constraints, it produces N prompt variants.
// Any failure to obtain exactly N well-formed variants falls through to a
// deterministic template mutator so planning never blocks the run.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/choiwab/promptsmith/internal/adapters/openaiclient"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
)

// VariantSpec is one planned variant before generation.
type VariantSpec struct {
	VariantPrompt string   `json:"variant_prompt"`
	MutationTags  []string `json:"mutation_tags"`
}

type PlanRequest struct {
	BasePrompt      string
	ObjectivePreset string
	NVariants       int
	MustInclude     []string
	MustAvoid       []string
}

type Planner interface {
	// PlanVariants always returns exactly req.NVariants specs. degraded is
	// true when the deterministic fallback template was used instead of a
	// model response.
	PlanVariants(ctx context.Context, req PlanRequest) (variants []VariantSpec, degraded bool)
}

type adapter struct {
	client *openaiclient.Client
	model  string
	log    *logger.Logger
}

func New(client *openaiclient.Client, model string, log *logger.Logger) Planner {
	return &adapter{client: client, model: model, log: log.With("adapter", "planner")}
}

var planSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"variants": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"variant_prompt": map[string]any{"type": "string"},
					"mutation_tags":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required":             []string{"variant_prompt", "mutation_tags"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"variants"},
	"additionalProperties": false,
}

const plannerSystemPrompt = "You are a prompt engineer producing meaningfully distinct image-generation variants for an A/B evaluation run. Return only the requested JSON."

func (a *adapter) PlanVariants(ctx context.Context, req PlanRequest) ([]VariantSpec, bool) {
	if a.client.Enabled() {
		if variants, ok := a.planWithModel(ctx, req); ok {
			return variants, false
		}
	}
	return fallbackVariants(req), true
}

func (a *adapter) planWithModel(ctx context.Context, req PlanRequest) ([]VariantSpec, bool) {
	user := buildPlanPrompt(req)
	obj, err := a.client.GenerateJSON(ctx, a.model, plannerSystemPrompt, user, "variant_plan", planSchema)
	if err != nil {
		a.log.Warn("planner request failed, falling back", "error", err.Error())
		return nil, false
	}
	raw, ok := obj["variants"].([]any)
	if !ok || len(raw) < req.NVariants {
		a.log.Warn("planner returned short or malformed variant list, falling back", "got", len(raw))
		return nil, false
	}
	out := make([]VariantSpec, 0, req.NVariants)
	for _, item := range raw[:req.NVariants] {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		prompt, _ := m["variant_prompt"].(string)
		if strings.TrimSpace(prompt) == "" {
			return nil, false
		}
		out = append(out, VariantSpec{
			VariantPrompt: prompt,
			MutationTags:  stringSlice(m["mutation_tags"]),
		})
	}
	return out, true
}

func buildPlanPrompt(req PlanRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "base_prompt: %s\nobjective_preset: %s\nn_variants: %d\n", req.BasePrompt, req.ObjectivePreset, req.NVariants)
	if len(req.MustInclude) > 0 {
		fmt.Fprintf(&b, "must_include: %s\n", strings.Join(req.MustInclude, ", "))
	}
	if len(req.MustAvoid) > 0 {
		fmt.Fprintf(&b, "must_avoid: %s\n", strings.Join(req.MustAvoid, ", "))
	}
	b.WriteString("Produce exactly n_variants meaningfully distinct variant_prompt strings, each tagged with the mutation axes it explores.")
	return b.String()
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// mutationHints is the fixed axis list the deterministic fallback cycles
// through.
var mutationHints = []string{"composition", "lighting", "lens", "style-detail", "negative-constraint"}

var hintPhrases = map[string]string{
	"composition":        "rebalanced composition and framing",
	"lighting":           "adjusted lighting and mood",
	"lens":                "alternate lens and depth of field",
	"style-detail":        "refined stylistic detail",
	"negative-constraint": "tighter negative constraints",
}

// fallbackVariants is deterministic: identical req ⇒ identical output.
func fallbackVariants(req PlanRequest) []VariantSpec {
	out := make([]VariantSpec, 0, req.NVariants)
	for i := 0; i < req.NVariants; i++ {
		hint := mutationHints[i%len(mutationHints)]
		prompt := strings.TrimSpace(req.BasePrompt) + ", " + hintPhrases[hint]
		if len(req.MustInclude) > 0 {
			prompt += ", featuring " + strings.Join(req.MustInclude, ", ")
		}
		if len(req.MustAvoid) > 0 {
			prompt += ", avoiding " + strings.Join(req.MustAvoid, ", ")
		}
		out = append(out, VariantSpec{
			VariantPrompt: prompt,
			MutationTags:  []string{hint},
		})
	}
	return out
}
