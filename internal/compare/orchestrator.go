// Package compare implements the Compare Orchestrator: given a candidate
// commit and a baseline commit, it fans out three independent drift signals
// (pixel, semantic, vision-structural), combines them into a single drift
// score, and derives a pass/fail/inconclusive verdict.
package compare

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/choiwab/promptsmith/internal/adapters/judge"
	"github.com/choiwab/promptsmith/internal/adapters/openaiclient"
	"github.com/choiwab/promptsmith/internal/blobstore"
	"github.com/choiwab/promptsmith/internal/clock"
	"github.com/choiwab/promptsmith/internal/domain"
	"github.com/choiwab/promptsmith/internal/observability"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
	"github.com/choiwab/promptsmith/internal/pixelengine"
	"github.com/choiwab/promptsmith/internal/store"
)

// ErrBaselineNotSet is returned when no baseline commit id was supplied and
// the project has no active baseline configured.
var ErrBaselineNotSet = errors.New("compare: baseline not set")

// ErrCommitNotUsable is returned when either commit is not a successful
// commit with at least one image.
var ErrCommitNotUsable = errors.New("compare: commit not usable for comparison")

// ErrPipelineFailed wraps a fatal failure of the pixel signal, which aborts
// the whole comparison (unlike the semantic/vision signals, which degrade).
type ErrPipelineFailed struct{ Err error }

func (e *ErrPipelineFailed) Error() string { return fmt.Sprintf("compare: pipeline failed: %v", e.Err) }
func (e *ErrPipelineFailed) Unwrap() error { return e.Err }

type Config struct {
	Threshold     float64
	SemanticModel string
	VisionModel   string
	CacheDir      string

	// VisionStructuralProvider selects which signal feeds
	// vision_structural_score: "openai" (default) or "gcp", which requires
	// StructuralProbe to be set.
	VisionStructuralProvider string
}

type Orchestrator struct {
	repo          store.Repository
	blobs         blobstore.BlobStore
	client        *openaiclient.Client
	structuralGCP judge.StructuralProbe
	cfg           Config
	log           *logger.Logger
}

func New(repo store.Repository, blobs blobstore.BlobStore, client *openaiclient.Client, cfg Config, log *logger.Logger) *Orchestrator {
	return &Orchestrator{repo: repo, blobs: blobs, client: client, cfg: cfg, log: log.With("component", "compare_orchestrator")}
}

// WithStructuralProbe attaches the optional GCP Vision-backed structural
// signal. Only used when cfg.VisionStructuralProvider == "gcp".
func (o *Orchestrator) WithStructuralProbe(probe judge.StructuralProbe) *Orchestrator {
	o.structuralGCP = probe
	return o
}

// Compare runs the three-signal drift comparison and persists the resulting
// report. baselineCommitID may be empty, in which case the project's active
// baseline is used.
func (o *Orchestrator) Compare(ctx context.Context, projectID, candidateCommitID, baselineCommitID string) (*domain.ComparisonReport, error) {
	ctx, endSpan := observability.StartStageSpan(ctx, "compare")
	defer endSpan()

	project, err := o.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if baselineCommitID == "" {
		if project.ActiveBaselineCommitID == nil || *project.ActiveBaselineCommitID == "" {
			return nil, ErrBaselineNotSet
		}
		baselineCommitID = *project.ActiveBaselineCommitID
	}

	baseline, err := o.repo.GetCommit(ctx, baselineCommitID, projectID)
	if err != nil {
		return nil, err
	}
	candidate, err := o.repo.GetCommit(ctx, candidateCommitID, projectID)
	if err != nil {
		return nil, err
	}
	if !usable(baseline) || !usable(candidate) {
		return nil, ErrCommitNotUsable
	}

	baselineImg, err := resolveCommitImage(ctx, o.blobs, o.cfg.CacheDir, baseline)
	if err != nil {
		return nil, &ErrPipelineFailed{Err: err}
	}
	candidateImg, err := resolveCommitImage(ctx, o.blobs, o.cfg.CacheDir, candidate)
	if err != nil {
		return nil, &ErrPipelineFailed{Err: err}
	}

	var (
		wg sync.WaitGroup

		pixelResult pixelengine.Result
		pixelErr    error

		semanticScore   *float64
		semanticDegrade bool

		visionScore   *float64
		visionDegrade bool
	)

	wg.Add(3)

	go func() {
		defer wg.Done()
		_, end := observability.StartStageSpan(ctx, "compare.pixel")
		defer end()
		pixelResult, pixelErr = pixelengine.Compare(baselineImg, candidateImg)
	}()

	go func() {
		defer wg.Done()
		spanCtx, end := observability.StartStageSpan(ctx, "compare.semantic")
		defer end()
		v, err := semanticSimilarity(spanCtx, o.client, o.cfg.SemanticModel, baselineImg, candidateImg)
		if err != nil {
			o.log.Warn("semantic similarity signal degraded", "error", err.Error())
			semanticDegrade = true
			return
		}
		semanticScore = &v
	}()

	go func() {
		defer wg.Done()
		spanCtx, end := observability.StartStageSpan(ctx, "compare.vision")
		defer end()
		if o.cfg.VisionStructuralProvider == "gcp" && o.structuralGCP != nil {
			score, _, err := o.structuralGCP.StructuralScore(spanCtx, baselineImg, candidateImg)
			if err != nil {
				o.log.Warn("gcp vision structural signal degraded", "error", err.Error())
				visionDegrade = true
				return
			}
			visionScore = &score
			return
		}
		v, err := visionStructuralScore(spanCtx, o.client, o.cfg.VisionModel, baselineImg, candidateImg)
		if err != nil {
			o.log.Warn("vision structural signal degraded", "error", err.Error())
			visionDegrade = true
			return
		}
		visionScore = &v.Score
	}()

	wg.Wait()

	if pixelErr != nil {
		return nil, &ErrPipelineFailed{Err: pixelErr}
	}

	threshold := o.cfg.Threshold
	if threshold <= 0 {
		threshold = 0.30
	}

	drift := driftScore(pixelResult.PixelDiffScore, semanticScore, visionScore)
	verdict := deriveVerdict(pixelResult.PixelDiffScore, semanticScore, visionScore, drift, threshold)
	degraded := semanticDegrade || visionDegrade

	reportID, err := o.repo.ReserveReportID(ctx)
	if err != nil {
		return nil, err
	}

	heatmapKey := blobstore.ReportArtifactKey(reportID, "diff_heatmap")
	overlayKey := blobstore.ReportArtifactKey(reportID, "overlay")
	heatmapURL, err := o.blobs.Write(ctx, heatmapKey, pixelResult.HeatmapPNG)
	if err != nil {
		return nil, fmt.Errorf("compare: write heatmap artifact: %w", err)
	}
	overlayURL, err := o.blobs.Write(ctx, overlayKey, pixelResult.OverlayPNG)
	if err != nil {
		return nil, err
	}

	report := &domain.ComparisonReport{
		ReportID:              reportID,
		ProjectID:             projectID,
		BaselineCommitID:      baselineCommitID,
		CandidateCommitID:     candidateCommitID,
		PixelDiffScore:        pixelResult.PixelDiffScore,
		SemanticSimilarity:    semanticScore,
		VisionStructuralScore: visionScore,
		DriftScore:            drift,
		Threshold:             threshold,
		Verdict:               verdict,
		Degraded:              degraded,
		HeatmapPath:           heatmapURL,
		OverlayPath:           overlayURL,
		CreatedAt:             clock.Now(),
	}
	report.SetExplanation(buildExplanation(pixelResult.PixelDiffScore, semanticScore, visionScore, semanticDegrade, visionDegrade))

	if err := o.repo.CreateComparisonReport(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

func usable(c *domain.Commit) bool {
	return c != nil && c.Status == domain.CommitStatusSuccess && len(c.ImagePaths()) > 0
}

// driftScore applies drift = 0.40*(1-semantic) + 0.30*pixel + 0.30*vision,
// omitting any term whose signal is missing rather than renormalizing the
// remaining weights.
func driftScore(pixelDiff float64, semantic, vision *float64) float64 {
	drift := 0.30 * pixelDiff
	if semantic != nil {
		drift += 0.40 * (1 - *semantic)
	}
	if vision != nil {
		drift += 0.30 * *vision
	}
	return round4(drift)
}

// deriveVerdict applies the four verdict rules: full-signal pass/fail by
// threshold, or partial-signal inconclusive/fail keyed off pixel_diff_score.
func deriveVerdict(pixelDiff float64, semantic, vision *float64, drift, threshold float64) domain.Verdict {
	if semantic != nil && vision != nil {
		if drift <= threshold {
			return domain.VerdictPass
		}
		return domain.VerdictFail
	}
	if pixelDiff <= 0.70 {
		return domain.VerdictInconclusive
	}
	return domain.VerdictFail
}

func buildExplanation(pixelDiff float64, semantic, vision *float64, semanticDegraded, visionDegraded bool) map[string]interface{} {
	out := map[string]interface{}{
		"pixel_diff_score": pixelDiff,
	}
	if semantic != nil {
		out["semantic_similarity"] = *semantic
	} else {
		out["semantic_similarity"] = nil
		out["semantic_unavailable"] = true
	}
	if vision != nil {
		out["vision_structural_score"] = *vision
	} else {
		out["vision_structural_score"] = nil
		out["vision_unavailable"] = true
	}
	if semanticDegraded || visionDegraded {
		out["degraded_reason"] = "one or more vision-model signals were unavailable; drift was computed over the remaining terms only"
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
