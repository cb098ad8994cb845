// Package refiner adapts the suggestion-synthesis provider: given a run
// summary, produce three next-prompt suggestions (conservative, balanced,
// aggressive). Any failure falls through to a deterministic template so
// refining never blocks a run's terminal state.
package refiner

import (
	"context"
	"fmt"
	"strings"

	"github.com/choiwab/promptsmith/internal/adapters/openaiclient"
	"github.com/choiwab/promptsmith/internal/domain"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
)

type Summary struct {
	BasePrompt string
	Top        []*domain.EvalVariant // up to 3, by rank
	Bottom     []*domain.EvalVariant // up to 2, failed/low scorers
}

type Refiner interface {
	// Suggest always returns a complete Suggestions value. degraded is true
	// when the deterministic fallback was used instead of a model response.
	Suggest(ctx context.Context, summary Summary) (*domain.Suggestions, bool)
}

type adapter struct {
	client *openaiclient.Client
	model  string
	log    *logger.Logger
}

func New(client *openaiclient.Client, model string, log *logger.Logger) Refiner {
	return &adapter{client: client, model: model, log: log.With("adapter", "refiner")}
}

var suggestSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"conservative": suggestionProperty(),
		"balanced":     suggestionProperty(),
		"aggressive":   suggestionProperty(),
	},
	"required":             []string{"conservative", "balanced", "aggressive"},
	"additionalProperties": false,
}

func suggestionProperty() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt_text": map[string]any{"type": "string"},
			"rationale":   map[string]any{"type": "string"},
		},
		"required":             []string{"prompt_text", "rationale"},
		"additionalProperties": false,
	}
}

const refinerSystemPrompt = "You are a prompt strategist proposing the next iteration of an image-generation run based on its leaderboard. Return only the requested JSON."

func (a *adapter) Suggest(ctx context.Context, summary Summary) (*domain.Suggestions, bool) {
	if a.client.Enabled() {
		if suggestions, ok := a.suggestWithModel(ctx, summary); ok {
			return suggestions, false
		}
	}
	return fallbackSuggestions(summary), true
}

func (a *adapter) suggestWithModel(ctx context.Context, summary Summary) (*domain.Suggestions, bool) {
	user := buildSummaryPrompt(summary)
	obj, err := a.client.GenerateJSON(ctx, a.model, refinerSystemPrompt, user, "run_suggestions", suggestSchema)
	if err != nil {
		a.log.Warn("refiner request failed, falling back", "error", err.Error())
		return nil, false
	}
	out := &domain.Suggestions{}
	for key, dst := range map[string]*domain.PromptSuggestion{
		"conservative": &out.Conservative,
		"balanced":     &out.Balanced,
		"aggressive":   &out.Aggressive,
	} {
		m, ok := obj[key].(map[string]any)
		if !ok {
			return nil, false
		}
		text, _ := m["prompt_text"].(string)
		rationale, _ := m["rationale"].(string)
		if strings.TrimSpace(text) == "" {
			return nil, false
		}
		dst.PromptText = text
		dst.Rationale = rationale
	}
	return out, true
}

func buildSummaryPrompt(summary Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "base_prompt: %s\n", summary.BasePrompt)
	b.WriteString("top_variants:\n")
	for _, v := range summary.Top {
		score := 0.0
		if v.CompositeScore != nil {
			score = *v.CompositeScore
		}
		fmt.Fprintf(&b, "  - prompt: %s; strengths: %s; composite: %.4f\n", v.VariantPrompt, strings.Join(v.StrengthTags, ", "), score)
	}
	b.WriteString("bottom_variants:\n")
	for _, v := range summary.Bottom {
		fmt.Fprintf(&b, "  - prompt: %s; failures: %s\n", v.VariantPrompt, strings.Join(v.FailureTags, ", "))
	}
	b.WriteString("Propose conservative, balanced, and aggressive next prompts with a short rationale each.")
	return b.String()
}

// fallbackSuggestions is deterministic: identical summary ⇒ identical
// output.
func fallbackSuggestions(summary Summary) *domain.Suggestions {
	topPrompt := summary.BasePrompt
	if len(summary.Top) > 0 {
		topPrompt = summary.Top[0].VariantPrompt
	}

	return &domain.Suggestions{
		Conservative: domain.PromptSuggestion{
			PromptText: topPrompt,
			Rationale:  "Reuses the top-ranked variant prompt verbatim to lock in its strengths.",
		},
		Balanced: domain.PromptSuggestion{
			PromptText: topPrompt + ", clarify primary subject and lighting",
			Rationale:  "Keeps the top variant's direction while nudging subject clarity and lighting.",
		},
		Aggressive: domain.PromptSuggestion{
			PromptText: aggressiveRephrase(summary.BasePrompt),
			Rationale:  "High-variance rephrase preserving only the principal subject for maximum exploration.",
		},
	}
}

// aggressiveRephrase keeps only the last whitespace-separated token of the
// base prompt, with surrounding punctuation trimmed ("subject" when none), as
// the "principal noun" and wraps it in a high-variance template.
func aggressiveRephrase(basePrompt string) string {
	fields := strings.Fields(basePrompt)
	noun := "subject"
	for i := len(fields) - 1; i >= 0; i-- {
		cleaned := strings.Trim(fields[i], ".,!?\"'")
		if cleaned != "" {
			noun = cleaned
			break
		}
	}
	return fmt.Sprintf("a radically reimagined %s, experimental composition, unconventional style, high creative variance", noun)
}
