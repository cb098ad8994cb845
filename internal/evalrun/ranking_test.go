package evalrun

import (
	"testing"

	"github.com/choiwab/promptsmith/internal/domain"
)

func variant(id string, adherence, subject, composition, style, penalty float64) *domain.EvalVariant {
	v := &domain.EvalVariant{
		VariantID:                id,
		Status:                   domain.VariantStatusEvaluated,
		PromptAdherence:          adherence,
		SubjectFidelity:          subject,
		CompositionQuality:       composition,
		StyleCoherence:           style,
		TechnicalArtifactPenalty: penalty,
	}
	score := compositeScore(v)
	v.CompositeScore = &score
	return v
}

func TestCompositeScore_Weights(t *testing.T) {
	v := variant("a", 1.0, 1.0, 1.0, 1.0, 0.0)
	if got := compositeScore(v); got != 0.90 {
		t.Fatalf("fully clean variant composite = %v, want 0.90", got)
	}

	v2 := variant("b", 0, 0, 0, 0, 1.0)
	if got := compositeScore(v2); got != -0.10 {
		t.Fatalf("fully penalized variant composite = %v, want -0.10", got)
	}
}

func TestRank_OrdersByCompositeThenTieBreakers(t *testing.T) {
	high := variant("high", 1, 1, 1, 1, 0)
	low := variant("low", 0, 0, 0, 0, 0)

	leaderboard, topK := rank([]*domain.EvalVariant{low, high})
	if leaderboard[0].VariantID != "high" {
		t.Fatalf("expected high-scoring variant first, got %q", leaderboard[0].VariantID)
	}
	if *leaderboard[0].Rank != 1 || *leaderboard[1].Rank != 2 {
		t.Fatalf("expected ranks 1 and 2, got %v and %v", *leaderboard[0].Rank, *leaderboard[1].Rank)
	}
	if len(topK) != 2 || topK[0] != "high" {
		t.Fatalf("unexpected topK: %v", topK)
	}
}

func TestRank_TieBreaksOnConfidenceWhenCompositeTies(t *testing.T) {
	a := variant("a", 0.5, 0.5, 0.5, 0.5, 0)
	b := variant("b", 0.5, 0.5, 0.5, 0.5, 0)
	a.Confidence = 0.9
	b.Confidence = 0.5

	leaderboard, _ := rank([]*domain.EvalVariant{b, a})
	if leaderboard[0].VariantID != "a" {
		t.Fatalf("expected higher-confidence variant first, got %q", leaderboard[0].VariantID)
	}
}

func TestRank_ExcludesUnevaluatedVariants(t *testing.T) {
	planned := &domain.EvalVariant{VariantID: "p", Status: domain.VariantStatusPlanned}
	done := variant("done", 0.5, 0.5, 0.5, 0.5, 0)

	leaderboard, topK := rank([]*domain.EvalVariant{planned, done})
	if len(leaderboard) != 1 || leaderboard[0].VariantID != "done" {
		t.Fatalf("expected only the evaluated variant in the leaderboard, got %v", leaderboard)
	}
	if len(topK) != 1 || topK[0] != "done" {
		t.Fatalf("unexpected topK: %v", topK)
	}
}

func TestRank_TopKCappedAtThree(t *testing.T) {
	variants := make([]*domain.EvalVariant, 0, 5)
	for i := 0; i < 5; i++ {
		variants = append(variants, variant(string(rune('a'+i)), 0.5, 0.5, 0.5, 0.5, 0))
	}
	_, topK := rank(variants)
	if len(topK) != 3 {
		t.Fatalf("expected topK capped at 3, got %d", len(topK))
	}
}

func TestHardRuleViolations_CountsFlaggedSubstrings(t *testing.T) {
	v := &domain.EvalVariant{FailureTags: []string{"visible Watermark", "extra limb", "color shift"}}
	if got := v.HardRuleViolations(); got != 2 {
		t.Fatalf("HardRuleViolations() = %d, want 2", got)
	}
}
