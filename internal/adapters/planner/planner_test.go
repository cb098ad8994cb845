package planner

import (
	"context"
	"strings"
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

func TestPlanVariants_FallsBackWhenClientDisabled(t *testing.T) {
	p := New(disabledClient(t), "gpt-image-1", testLogger(t))
	req := PlanRequest{BasePrompt: "a red ball on a table", NVariants: 3}

	variants, degraded := p.PlanVariants(context.Background(), req)
	if !degraded {
		t.Fatalf("expected degraded=true with a disabled client")
	}
	if len(variants) != 3 {
		t.Fatalf("len(variants) = %d, want 3", len(variants))
	}
	for _, v := range variants {
		if v.VariantPrompt == "" {
			t.Fatalf("expected non-empty variant prompt, got %+v", v)
		}
		if len(v.MutationTags) == 0 {
			t.Fatalf("expected at least one mutation tag, got %+v", v)
		}
	}
}

func TestFallbackVariants_IsDeterministic(t *testing.T) {
	req := PlanRequest{BasePrompt: "a blue car", NVariants: 5, MustInclude: []string{"headlights"}, MustAvoid: []string{"rain"}}

	a := fallbackVariants(req)
	b := fallbackVariants(req)

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].VariantPrompt != b[i].VariantPrompt {
			t.Fatalf("variant %d prompts differ: %q vs %q", i, a[i].VariantPrompt, b[i].VariantPrompt)
		}
	}
}

func TestFallbackVariants_ProducesDistinctMutationAxes(t *testing.T) {
	req := PlanRequest{BasePrompt: "a mountain landscape", NVariants: 5}
	variants := fallbackVariants(req)

	seen := map[string]bool{}
	for _, v := range variants {
		for _, tag := range v.MutationTags {
			seen[tag] = true
		}
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 distinct mutation axes across variants, saw %v", seen)
	}
}

func TestFallbackVariants_EmbedsMustIncludeAndMustAvoid(t *testing.T) {
	req := PlanRequest{
		BasePrompt:  "a cup of coffee",
		NVariants:   1,
		MustInclude: []string{"steam"},
		MustAvoid:   []string{"spoon"},
	}
	variants := fallbackVariants(req)
	if len(variants) != 1 {
		t.Fatalf("len = %d, want 1", len(variants))
	}
	prompt := variants[0].VariantPrompt
	if !strings.Contains(prompt, "steam") || !strings.Contains(prompt, "spoon") {
		t.Fatalf("expected prompt to mention must_include and must_avoid terms, got %q", prompt)
	}
}
