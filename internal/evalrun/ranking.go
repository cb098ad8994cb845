package evalrun

import (
	"math"
	"sort"

	"github.com/choiwab/promptsmith/internal/domain"
)

// compositeScore computes composite = 0.35*prompt_adherence +
// 0.20*subject_fidelity + 0.20*composition_quality + 0.15*style_coherence -
// 0.10*technical_artifact_penalty, rounded to 4 decimals. The result is not
// clamped: it can legitimately land anywhere in [-0.10, 0.90].
func compositeScore(v *domain.EvalVariant) float64 {
	raw := 0.35*v.PromptAdherence +
		0.20*v.SubjectFidelity +
		0.20*v.CompositionQuality +
		0.15*v.StyleCoherence -
		0.10*v.TechnicalArtifactPenalty
	return round4(raw)
}

// rank sorts evaluated variants descending by composite_score, confidence,
// -technical_artifact_penalty, -hard_rule_violations, and finally ascending
// variant_id, assigns 1-based ranks, and returns the top min(3, len)
// entries' variant ids as top_k.
func rank(variants []*domain.EvalVariant) (leaderboard []*domain.EvalVariant, topK []string) {
	scored := make([]*domain.EvalVariant, 0, len(variants))
	for _, v := range variants {
		if v.Status == domain.VariantStatusEvaluated || v.Status == domain.VariantStatusEvaluatedDegraded {
			scored = append(scored, v)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		as, bs := scoreOf(a), scoreOf(b)
		if as != bs {
			return as > bs
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.TechnicalArtifactPenalty != b.TechnicalArtifactPenalty {
			return a.TechnicalArtifactPenalty < b.TechnicalArtifactPenalty
		}
		av, bv := a.HardRuleViolations(), b.HardRuleViolations()
		if av != bv {
			return av < bv
		}
		return a.VariantID < b.VariantID
	})

	for i, v := range scored {
		r := i + 1
		v.Rank = &r
	}

	k := len(scored)
	if k > 3 {
		k = 3
	}
	topK = make([]string, 0, k)
	for i := 0; i < k; i++ {
		topK = append(topK, scored[i].VariantID)
	}

	return scored, topK
}

func scoreOf(v *domain.EvalVariant) float64 {
	if v.CompositeScore == nil {
		return 0
	}
	return *v.CompositeScore
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
