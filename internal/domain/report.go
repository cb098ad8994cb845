package domain

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type Verdict string

const (
	VerdictPass         Verdict = "pass"
	VerdictFail         Verdict = "fail"
	VerdictInconclusive Verdict = "inconclusive"
)

// ComparisonReport is the persisted result of comparing a candidate commit
// against a baseline commit across three independent drift signals.
type ComparisonReport struct {
	ReportID              string         `gorm:"column:report_id;primaryKey" json:"report_id"`
	ProjectID             string         `gorm:"column:project_id;index" json:"project_id"`
	BaselineCommitID      string         `gorm:"column:baseline_commit_id;index" json:"baseline_commit_id"`
	CandidateCommitID     string         `gorm:"column:candidate_commit_id;index" json:"candidate_commit_id"`
	PixelDiffScore        float64        `gorm:"column:pixel_diff_score" json:"pixel_diff_score"`
	SemanticSimilarity    *float64       `gorm:"column:semantic_similarity" json:"semantic_similarity,omitempty"`
	VisionStructuralScore *float64       `gorm:"column:vision_structural_score" json:"vision_structural_score,omitempty"`
	DriftScore            float64        `gorm:"column:drift_score" json:"drift_score"`
	Threshold             float64        `gorm:"column:threshold" json:"threshold"`
	Verdict               Verdict        `gorm:"column:verdict" json:"verdict"`
	Degraded              bool           `gorm:"column:degraded" json:"degraded"`
	ExplanationJSON       datatypes.JSON `gorm:"column:explanation" json:"-"`
	HeatmapPath           string         `gorm:"column:heatmap_path" json:"heatmap_path"`
	OverlayPath           string         `gorm:"column:overlay_path" json:"overlay_path"`
	CreatedAt             time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (ComparisonReport) TableName() string { return "comparisons" }

func (r *ComparisonReport) Explanation() map[string]interface{} {
	if len(r.ExplanationJSON) == 0 {
		return map[string]interface{}{}
	}
	out := map[string]interface{}{}
	_ = json.Unmarshal(r.ExplanationJSON, &out)
	return out
}

func (r *ComparisonReport) SetExplanation(m map[string]interface{}) {
	if m == nil {
		m = map[string]interface{}{}
	}
	raw, _ := json.Marshal(m)
	r.ExplanationJSON = datatypes.JSON(raw)
}

// MarshalJSON flattens Explanation/HeatmapPath/OverlayPath into the wire
// shape expected by §6 of the HTTP contract.
func (r ComparisonReport) MarshalJSON() ([]byte, error) {
	type alias ComparisonReport
	return json.Marshal(struct {
		alias
		Explanation map[string]interface{} `json:"explanation"`
		Artifacts   reportArtifacts         `json:"artifacts"`
	}{
		alias:       alias(r),
		Explanation: r.Explanation(),
		Artifacts: reportArtifacts{
			HeatmapPath: r.HeatmapPath,
			OverlayPath: r.OverlayPath,
		},
	})
}

type reportArtifacts struct {
	HeatmapPath string `json:"heatmap_path"`
	OverlayPath string `json:"overlay_path"`
}
