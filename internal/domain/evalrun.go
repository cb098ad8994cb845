package domain

import (
	"strings"
	"time"
)

type RunStatus string

const (
	RunStatusQueued            RunStatus = "queued"
	RunStatusRunning           RunStatus = "running"
	RunStatusCompleted         RunStatus = "completed"
	RunStatusCompletedDegraded RunStatus = "completed_degraded"
	RunStatusFailed            RunStatus = "failed"
)

type Stage string

const (
	StageQueued     Stage = "queued"
	StagePlanning   Stage = "planning"
	StageGenerating Stage = "generating"
	StageEvaluating Stage = "evaluating"
	StageRefining   Stage = "refining"
	StageDone       Stage = "done"
)

type ObjectivePreset string

const (
	ObjectiveAdherence ObjectivePreset = "adherence"
	ObjectiveAesthetic ObjectivePreset = "aesthetic"
	ObjectiveProduct   ObjectivePreset = "product"
)

type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// Progress tracks monotonically-increasing counters bounded to [0, NVariants].
type Progress struct {
	PlannedVariants   int `json:"planned_variants"`
	GeneratedVariants int `json:"generated_variants"`
	FailedVariants    int `json:"failed_variants"`
	EvaluatedVariants int `json:"evaluated_variants"`
}

// EvalRun is process-volatile state: it exists only in the run store's
// in-memory map for the lifetime of the owning process.
type EvalRun struct {
	RunID           string          `json:"run_id"`
	ProjectID       string          `json:"project_id"`
	BasePrompt      string          `json:"base_prompt"`
	ObjectivePreset ObjectivePreset `json:"objective_preset"`
	ImageModel      string          `json:"image_model"`
	NVariants       int             `json:"n_variants"`
	Quality         Quality         `json:"quality"`
	ParentCommitID  *string         `json:"parent_commit_id,omitempty"`
	AnchorCommitID  *string         `json:"anchor_commit_id,omitempty"`
	MustInclude     []string        `json:"must_include,omitempty"`
	MustAvoid       []string        `json:"must_avoid,omitempty"`

	Status   RunStatus `json:"status"`
	Stage    Stage     `json:"stage"`
	Degraded bool      `json:"degraded"`
	Error    *string   `json:"error,omitempty"`

	Progress Progress `json:"progress"`

	Variants    []*EvalVariant `json:"variants"`
	Leaderboard []*EvalVariant `json:"leaderboard"`
	TopK        []string       `json:"top_k"`

	Suggestions *Suggestions `json:"suggestions,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type VariantStatus string

const (
	VariantStatusPlanned            VariantStatus = "planned"
	VariantStatusGenerationFailed   VariantStatus = "generation_failed"
	VariantStatusGenerated          VariantStatus = "generated"
	VariantStatusEvaluationSkipped  VariantStatus = "evaluation_skipped"
	VariantStatusEvaluated          VariantStatus = "evaluated"
	VariantStatusEvaluatedDegraded  VariantStatus = "evaluated_degraded"
)

// EvalVariant is one candidate generation+evaluation within a run. Status
// only ever advances forward: planned becomes generated or
// generation_failed; generated becomes evaluated or evaluated_degraded; any
// other variant except generation_failed becomes evaluation_skipped at the
// evaluation stage; generation_failed is terminal.
type EvalVariant struct {
	VariantID       string   `json:"variant_id"`
	VariantPrompt   string   `json:"variant_prompt"`
	MutationTags    []string `json:"mutation_tags"`
	ParentCommitID  string   `json:"parent_commit_id"`
	CommitID        *string  `json:"commit_id,omitempty"`
	ImageURL        *string  `json:"image_url,omitempty"`
	Status          VariantStatus `json:"status"`

	GenerationLatencyMS int64 `json:"generation_latency_ms,omitempty"`
	EvaluationLatencyMS int64 `json:"evaluation_latency_ms,omitempty"`

	PromptAdherence          float64  `json:"prompt_adherence,omitempty"`
	SubjectFidelity          float64  `json:"subject_fidelity,omitempty"`
	CompositionQuality       float64  `json:"composition_quality,omitempty"`
	StyleCoherence           float64  `json:"style_coherence,omitempty"`
	TechnicalArtifactPenalty float64  `json:"technical_artifact_penalty,omitempty"`
	Confidence               float64  `json:"confidence,omitempty"`
	FailureTags              []string `json:"failure_tags,omitempty"`
	StrengthTags             []string `json:"strength_tags,omitempty"`
	Rationale                string   `json:"rationale,omitempty"`

	CompositeScore *float64 `json:"composite_score,omitempty"`
	Rank           *int     `json:"rank,omitempty"`
	Error          *string  `json:"error,omitempty"`
}

// HardRuleViolations counts failure tags containing any of the flagged
// substrings, lowercased.
func (v *EvalVariant) HardRuleViolations() int {
	count := 0
	for _, tag := range v.FailureTags {
		lower := strings.ToLower(tag)
		if strings.Contains(lower, "artifact") || strings.Contains(lower, "watermark") || strings.Contains(lower, "limb") {
			count++
		}
	}
	return count
}

type Suggestions struct {
	Conservative PromptSuggestion `json:"conservative"`
	Balanced     PromptSuggestion `json:"balanced"`
	Aggressive   PromptSuggestion `json:"aggressive"`
}

type PromptSuggestion struct {
	PromptText string `json:"prompt_text"`
	Rationale  string `json:"rationale"`
}
