package domain

import (
	"strings"
	"testing"
)

func TestComparisonReport_SetExplanationThenExplanationRoundTrips(t *testing.T) {
	r := &ComparisonReport{}
	r.SetExplanation(map[string]interface{}{"pixel_diff_score": 0.12})

	got := r.Explanation()
	if got["pixel_diff_score"] != 0.12 {
		t.Fatalf("unexpected explanation %v", got)
	}
}

func TestComparisonReport_ExplanationEmptyWhenUnset(t *testing.T) {
	r := &ComparisonReport{}
	got := r.Explanation()
	if len(got) != 0 {
		t.Fatalf("expected empty explanation, got %v", got)
	}
}

func TestComparisonReport_SetExplanationNilStoresEmptyObject(t *testing.T) {
	r := &ComparisonReport{}
	r.SetExplanation(nil)
	got := r.Explanation()
	if len(got) != 0 {
		t.Fatalf("expected empty explanation for nil input, got %v", got)
	}
}

func TestComparisonReport_MarshalJSONFlattensArtifacts(t *testing.T) {
	r := &ComparisonReport{
		ReportID:    "r1",
		Verdict:     VerdictPass,
		HeatmapPath: "/heatmap.png",
		OverlayPath: "/overlay.png",
	}
	r.SetExplanation(map[string]interface{}{"pixel_diff_score": 0.1})

	raw, err := r.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	s := string(raw)
	if !strings.Contains(s, `"heatmap_path":"/heatmap.png"`) {
		t.Fatalf("expected flattened artifacts in %s", s)
	}
	if !strings.Contains(s, `"explanation":{"pixel_diff_score":0.1}`) {
		t.Fatalf("expected flattened explanation in %s", s)
	}
}
