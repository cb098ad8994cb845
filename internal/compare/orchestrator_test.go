package compare

import (
	"testing"

	"github.com/choiwab/promptsmith/internal/domain"
)

func ptr(v float64) *float64 { return &v }

func TestDriftScore_AllSignalsPresent(t *testing.T) {
	drift := driftScore(0.10, ptr(0.95), ptr(0.05))
	want := round4(0.40*(1-0.95) + 0.30*0.10 + 0.30*0.05)
	if drift != want {
		t.Fatalf("drift = %v, want %v", drift, want)
	}
}

func TestDriftScore_MissingSignalsNotRenormalized(t *testing.T) {
	full := driftScore(0.10, ptr(0.95), ptr(0.05))
	partial := driftScore(0.10, nil, ptr(0.05))
	if partial >= full {
		t.Fatalf("dropping a signal should only drop its weighted term, got partial=%v full=%v", partial, full)
	}
	want := round4(0.30*0.10 + 0.30*0.05)
	if partial != want {
		t.Fatalf("drift = %v, want %v", partial, want)
	}
}

func TestDeriveVerdict_FullSignalPassAndFail(t *testing.T) {
	if v := deriveVerdict(0.05, ptr(0.95), ptr(0.05), 0.10, 0.30); v != domain.VerdictPass {
		t.Fatalf("expected pass, got %v", v)
	}
	if v := deriveVerdict(0.05, ptr(0.40), ptr(0.60), 0.70, 0.30); v != domain.VerdictFail {
		t.Fatalf("expected fail, got %v", v)
	}
}

func TestDeriveVerdict_PartialSignalKeysOffPixelDiff(t *testing.T) {
	if v := deriveVerdict(0.50, nil, ptr(0.10), 0, 0.30); v != domain.VerdictInconclusive {
		t.Fatalf("expected inconclusive for pixel_diff<=0.70, got %v", v)
	}
	if v := deriveVerdict(0.90, ptr(0.20), nil, 0, 0.30); v != domain.VerdictFail {
		t.Fatalf("expected fail for pixel_diff>0.70, got %v", v)
	}
}

func TestBuildExplanation_DegradedReasonSetOnlyWhenDegraded(t *testing.T) {
	out := buildExplanation(0.1, ptr(0.9), ptr(0.1), false, false)
	if _, ok := out["degraded_reason"]; ok {
		t.Fatalf("did not expect degraded_reason when nothing degraded")
	}
	out = buildExplanation(0.1, nil, ptr(0.1), true, false)
	if out["semantic_similarity"] != nil {
		t.Fatalf("expected nil semantic_similarity when signal missing")
	}
	if _, ok := out["semantic_unavailable"]; !ok {
		t.Fatalf("expected semantic_unavailable flag")
	}
	if _, ok := out["degraded_reason"]; !ok {
		t.Fatalf("expected degraded_reason when a signal degraded")
	}
}

func TestUsable(t *testing.T) {
	if usable(nil) {
		t.Fatalf("nil commit must not be usable")
	}
	c := &domain.Commit{Status: domain.CommitStatusFailed}
	if usable(c) {
		t.Fatalf("failed commit must not be usable")
	}
}

func TestRound4(t *testing.T) {
	if got := round4(0.123456); got != 0.1235 {
		t.Fatalf("round4(0.123456) = %v, want 0.1235", got)
	}
}
