package evalrun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/choiwab/promptsmith/internal/adapters/generator"
	"github.com/choiwab/promptsmith/internal/adapters/judge"
	"github.com/choiwab/promptsmith/internal/adapters/openaiclient"
	"github.com/choiwab/promptsmith/internal/adapters/planner"
	"github.com/choiwab/promptsmith/internal/adapters/refiner"
	"github.com/choiwab/promptsmith/internal/blobstore"
	"github.com/choiwab/promptsmith/internal/clock"
	"github.com/choiwab/promptsmith/internal/domain"
	"github.com/choiwab/promptsmith/internal/observability"
	"github.com/choiwab/promptsmith/internal/pkg/httpx"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
	"github.com/choiwab/promptsmith/internal/store"
)

// stageConcurrency bounds the generating and evaluating fan-outs.
const stageConcurrency = 4

// ErrParentCommitUnusable is returned by CreateRun when the supplied
// parent_commit_id does not resolve to a commit belonging to the project
// with a successful status and at least one image.
var ErrParentCommitUnusable = errors.New("evalrun: parent commit not found or not usable")

// CreateRunRequest is the validated input to CreateRun.
type CreateRunRequest struct {
	ProjectID       string
	BasePrompt      string
	ObjectivePreset domain.ObjectivePreset
	ImageModel      string
	NVariants       int
	Quality         domain.Quality
	ParentCommitID  *string
	MustInclude     []string
	MustAvoid       []string
}

// Engine sequences a run's stages on a detached goroutine, fanning out
// generation and evaluation under a bounded semaphore.
type Engine struct {
	store     *Store
	repo      store.Repository
	blobs     blobstore.BlobStore
	generator generator.Generator
	judge     judge.Judge
	planner   planner.Planner
	refiner   refiner.Refiner
	log       *logger.Logger
}

func NewEngine(repo store.Repository, blobs blobstore.BlobStore, gen generator.Generator, jud judge.Judge, pln planner.Planner, ref refiner.Refiner, log *logger.Logger) *Engine {
	return &Engine{
		store:     NewStore(),
		repo:      repo,
		blobs:     blobs,
		generator: gen,
		judge:     jud,
		planner:   pln,
		refiner:   ref,
		log:       log.With("component", "eval_engine"),
	}
}

// WithMirror attaches the optional Redis read-through mirror to the run
// store. Returns the engine for chaining at the wiring site.
func (e *Engine) WithMirror(m Mirror) *Engine {
	e.store.WithMirror(m)
	return e
}

// CreateRun validates the request, persists the queued run in the in-memory
// store, and spawns the stage sequencer on a goroutine detached from the
// caller's context before returning. The HTTP handler is expected to return
// the queued snapshot immediately.
func (e *Engine) CreateRun(ctx context.Context, req CreateRunRequest) (*domain.EvalRun, error) {
	if _, err := e.repo.GetProject(ctx, req.ProjectID); err != nil {
		return nil, err
	}

	if req.ParentCommitID != nil && *req.ParentCommitID != "" {
		parent, err := e.repo.GetCommit(ctx, *req.ParentCommitID, req.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParentCommitUnusable, err)
		}
		if parent.Status != domain.CommitStatusSuccess || len(parent.ImagePaths()) == 0 {
			return nil, fmt.Errorf("%w: commit %q has no usable image", ErrParentCommitUnusable, parent.CommitID)
		}
	}

	runID, err := clock.NewRunID()
	if err != nil {
		return nil, fmt.Errorf("evalrun: mint run id: %w", err)
	}
	now := clock.Now()

	run := &domain.EvalRun{
		RunID:           runID,
		ProjectID:       req.ProjectID,
		BasePrompt:      req.BasePrompt,
		ObjectivePreset: req.ObjectivePreset,
		ImageModel:      req.ImageModel,
		NVariants:       req.NVariants,
		Quality:         req.Quality,
		ParentCommitID:  req.ParentCommitID,
		MustInclude:     req.MustInclude,
		MustAvoid:       req.MustAvoid,
		Status:          domain.RunStatusQueued,
		Stage:           domain.StageQueued,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	e.store.Put(run)

	go e.runDetached(runID)

	snapshot, _ := e.store.Get(runID)
	return snapshot, nil
}

func (e *Engine) GetRun(runID string) (*domain.EvalRun, bool) {
	return e.store.Get(runID)
}

// runDetached executes a run's full stage sequence against a background
// context, independent of the HTTP request that created it, recovering any
// panic into a terminal failed state so a run always reaches a terminal
// status.
func (e *Engine) runDetached(runID string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("eval run panicked", "run_id", runID, "panic", r)
			e.terminalizeFailed(runID, fmt.Errorf("internal error: %v", r))
		}
	}()
	e.execute(context.Background(), runID)
}

func (e *Engine) execute(ctx context.Context, runID string) {
	ctx, endRun := observability.StartStageSpan(ctx, "evalrun")
	defer endRun()

	if !e.stageSpan(ctx, "evalrun.plan", func(sctx context.Context) bool { return e.planningStage(sctx, runID) }) {
		return
	}
	if !e.stageSpan(ctx, "evalrun.generate", func(sctx context.Context) bool { return e.generatingStage(sctx, runID) }) {
		return
	}
	e.stageSpan(ctx, "evalrun.evaluate", func(sctx context.Context) bool { e.evaluatingStage(sctx, runID); return true })
	e.rankingStage(runID)
	e.stageSpan(ctx, "evalrun.refine", func(sctx context.Context) bool { e.refiningStage(sctx, runID); return true })
	e.finalizeRun(runID)
}

func (e *Engine) stageSpan(ctx context.Context, name string, fn func(context.Context) bool) bool {
	sctx, end := observability.StartStageSpan(ctx, name)
	defer end()
	return fn(sctx)
}

// The RunXStage wrappers below let the durable-mode Temporal activities
// (internal/temporalx) drive the exact same stage functions the in-process
// detached goroutine uses, instead of re-implementing the sequence.

func (e *Engine) RunPlanningStage(ctx context.Context, runID string) bool { return e.planningStage(ctx, runID) }

func (e *Engine) RunGeneratingStage(ctx context.Context, runID string) bool {
	return e.generatingStage(ctx, runID)
}

func (e *Engine) RunEvaluatingStage(ctx context.Context, runID string) { e.evaluatingStage(ctx, runID) }

func (e *Engine) RunRankingStage(runID string) { e.rankingStage(runID) }

func (e *Engine) RunRefiningStage(ctx context.Context, runID string) { e.refiningStage(ctx, runID) }

func (e *Engine) RunFinalize(runID string) { e.finalizeRun(runID) }

func (e *Engine) RunTerminalizeFailed(runID string, cause error) { e.terminalizeFailed(runID, cause) }

func (e *Engine) setStage(runID string, stage domain.Stage) {
	e.store.Mutate(runID, func(run *domain.EvalRun) {
		run.Stage = stage
		run.Status = domain.RunStatusRunning
		run.UpdatedAt = clock.Now()
	})
}

func (e *Engine) markDegraded(runID string) {
	e.store.Mutate(runID, func(run *domain.EvalRun) {
		run.Degraded = true
		run.UpdatedAt = clock.Now()
	})
}

func (e *Engine) terminalizeFailed(runID string, cause error) {
	e.store.Mutate(runID, func(run *domain.EvalRun) {
		msg := cause.Error()
		run.Status = domain.RunStatusFailed
		run.Stage = domain.StageDone
		run.Error = &msg
		now := clock.Now()
		run.UpdatedAt = now
		run.CompletedAt = &now
	})
}

// -------------------- planning --------------------

func (e *Engine) planningStage(ctx context.Context, runID string) bool {
	e.setStage(runID, domain.StagePlanning)

	run, _ := e.store.Get(runID)
	mustInclude := append([]string(nil), run.MustInclude...)
	mustAvoid := append([]string(nil), run.MustAvoid...)

	variants, degraded := e.planner.PlanVariants(ctx, planner.PlanRequest{
		BasePrompt:      run.BasePrompt,
		ObjectivePreset: string(run.ObjectivePreset),
		NVariants:       run.NVariants,
		MustInclude:     mustInclude,
		MustAvoid:       mustAvoid,
	})

	e.store.Mutate(runID, func(run *domain.EvalRun) {
		if degraded {
			run.Degraded = true
		}
		run.Variants = make([]*domain.EvalVariant, 0, len(variants))
		for i, v := range variants {
			run.Variants = append(run.Variants, &domain.EvalVariant{
				VariantID:     clock.VariantID(i + 1),
				VariantPrompt: v.VariantPrompt,
				MutationTags:  v.MutationTags,
				Status:        domain.VariantStatusPlanned,
			})
		}
		run.Progress.PlannedVariants = len(run.Variants)
		run.UpdatedAt = clock.Now()
	})
	return true
}

// -------------------- generating --------------------

func (e *Engine) generatingStage(ctx context.Context, runID string) bool {
	e.setStage(runID, domain.StageGenerating)
	run, _ := e.store.Get(runID)

	anchorCommitID, anchorBytes, ok := e.resolveAnchor(ctx, runID, run)
	if !ok {
		return false
	}

	e.store.Mutate(runID, func(run *domain.EvalRun) {
		run.AnchorCommitID = &anchorCommitID
		for _, v := range run.Variants {
			v.ParentCommitID = anchorCommitID
		}
		run.UpdatedAt = clock.Now()
	})

	variantIDs := make([]string, len(run.Variants))
	for i, v := range run.Variants {
		variantIDs[i] = v.VariantID
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stageConcurrency)

	for _, variantID := range variantIDs {
		variantID := variantID
		g.Go(func() error {
			e.generateVariant(gctx, runID, run.ProjectID, variantID, anchorCommitID, anchorBytes)
			return nil
		})
	}
	_ = g.Wait()

	return true
}

// resolveAnchor loads the parent commit's image when ParentCommitID was
// supplied, else generates a fresh root commit via text-to-image. A
// text-to-image failure terminalizes the run as failed.
func (e *Engine) resolveAnchor(ctx context.Context, runID string, run *domain.EvalRun) (string, []byte, bool) {
	if run.ParentCommitID != nil && *run.ParentCommitID != "" {
		commit, err := e.repo.GetCommit(ctx, *run.ParentCommitID, run.ProjectID)
		if err != nil {
			e.terminalizeFailed(runID, fmt.Errorf("evalrun: resolve parent commit: %w", err))
			return "", nil, false
		}
		paths := commit.ImagePaths()
		if commit.Status != domain.CommitStatusSuccess || len(paths) == 0 {
			e.terminalizeFailed(runID, fmt.Errorf("evalrun: parent commit %q has no usable image", commit.CommitID))
			return "", nil, false
		}
		img, err := e.blobs.Read(ctx, paths[0])
		if err != nil {
			e.terminalizeFailed(runID, fmt.Errorf("evalrun: read parent commit image: %w", err))
			return "", nil, false
		}
		return commit.CommitID, img, true
	}

	png, degraded, err := e.generator.TextToImage(ctx, run.BasePrompt)
	if err != nil {
		e.terminalizeFailed(runID, fmt.Errorf("evalrun: anchor generation failed: %w", err))
		return "", nil, false
	}
	if degraded {
		e.markDegraded(runID)
	}

	commitID, err := e.repo.ReserveCommitID(ctx)
	if err != nil {
		e.terminalizeFailed(runID, fmt.Errorf("evalrun: reserve anchor commit id: %w", err))
		return "", nil, false
	}
	key := blobstore.CommitImageKey(commitID, "png")
	if _, err := e.blobs.Write(ctx, key, png); err != nil {
		e.terminalizeFailed(runID, fmt.Errorf("evalrun: persist anchor image: %w", err))
		return "", nil, false
	}
	commit := &domain.Commit{
		CommitID:  commitID,
		ProjectID: run.ProjectID,
		Prompt:    run.BasePrompt,
		Model:     run.ImageModel,
		Status:    domain.CommitStatusSuccess,
		CreatedAt: clock.Now(),
	}
	commit.SetImagePaths([]string{key})
	if err := e.repo.CreateCommit(ctx, commit); err != nil {
		e.terminalizeFailed(runID, fmt.Errorf("evalrun: create anchor commit: %w", err))
		return "", nil, false
	}
	return commitID, png, true
}

func (e *Engine) generateVariant(ctx context.Context, runID, projectID, variantID, anchorCommitID string, anchorBytes []byte) {
	var prompt string
	e.store.Mutate(runID, func(run *domain.EvalRun) {
		for _, v := range run.Variants {
			if v.VariantID == variantID {
				prompt = v.VariantPrompt
			}
		}
	})

	start := time.Now()
	png, degraded, err := e.generator.ImageEdit(ctx, prompt, anchorBytes)
	if err != nil && isRetryableGeneration(err) {
		png, degraded, err = e.generator.ImageEdit(ctx, prompt, anchorBytes)
	}
	latency := time.Since(start).Milliseconds()

	if err != nil {
		genErrMsg := err.Error()
		failedCommitID, failedCommit := e.persistFailedCommit(ctx, projectID, prompt, anchorCommitID, genErrMsg)

		e.store.Mutate(runID, func(run *domain.EvalRun) {
			for _, v := range run.Variants {
				if v.VariantID != variantID {
					continue
				}
				v.Status = domain.VariantStatusGenerationFailed
				v.Error = &genErrMsg
				v.GenerationLatencyMS = latency
				v.ParentCommitID = anchorCommitID
				if failedCommit {
					v.CommitID = &failedCommitID
				}
			}
			run.Progress.FailedVariants++
			run.Degraded = true
			run.UpdatedAt = clock.Now()
		})
		return
	}
	if degraded {
		e.markDegraded(runID)
	}

	commitID, err := e.repo.ReserveCommitID(ctx)
	if err != nil {
		e.store.Mutate(runID, func(run *domain.EvalRun) {
			for _, v := range run.Variants {
				if v.VariantID == variantID {
					msg := err.Error()
					v.Status = domain.VariantStatusGenerationFailed
					v.Error = &msg
				}
			}
			run.Progress.FailedVariants++
			run.Degraded = true
			run.UpdatedAt = clock.Now()
		})
		return
	}
	key := blobstore.CommitImageKey(commitID, "png")
	url, err := e.blobs.Write(ctx, key, png)
	if err != nil {
		e.store.Mutate(runID, func(run *domain.EvalRun) {
			for _, v := range run.Variants {
				if v.VariantID == variantID {
					msg := err.Error()
					v.Status = domain.VariantStatusGenerationFailed
					v.Error = &msg
				}
			}
			run.Progress.FailedVariants++
			run.Degraded = true
			run.UpdatedAt = clock.Now()
		})
		return
	}

	commit := &domain.Commit{
		CommitID:       commitID,
		ProjectID:      projectID,
		Prompt:         prompt,
		Model:          "",
		ParentCommitID: &anchorCommitID,
		Status:         domain.CommitStatusSuccess,
		CreatedAt:      clock.Now(),
	}
	commit.SetImagePaths([]string{key})
	if err := e.repo.CreateCommit(ctx, commit); err != nil {
		e.store.Mutate(runID, func(run *domain.EvalRun) {
			for _, v := range run.Variants {
				if v.VariantID == variantID {
					msg := err.Error()
					v.Status = domain.VariantStatusGenerationFailed
					v.Error = &msg
				}
			}
			run.Progress.FailedVariants++
			run.Degraded = true
			run.UpdatedAt = clock.Now()
		})
		return
	}

	e.store.Mutate(runID, func(run *domain.EvalRun) {
		for _, v := range run.Variants {
			if v.VariantID != variantID {
				continue
			}
			v.CommitID = &commitID
			v.ImageURL = &url
			v.Status = domain.VariantStatusGenerated
			v.GenerationLatencyMS = latency
		}
		run.Progress.GeneratedVariants++
		run.UpdatedAt = clock.Now()
	})
}

// persistFailedCommit records a variant's generation failure as a failed
// commit (status=failed, image_paths=[], error text captured) so it shows up
// in project history alongside successful commits. A failure to reserve or
// persist the commit itself is logged and swallowed: the variant's own
// in-memory error is still recorded by the caller either way.
func (e *Engine) persistFailedCommit(ctx context.Context, projectID, prompt, anchorCommitID, errMsg string) (string, bool) {
	commitID, err := e.repo.ReserveCommitID(ctx)
	if err != nil {
		e.log.Warn("failed to reserve a commit id for a failed generation", "error", err.Error())
		return "", false
	}
	commit := &domain.Commit{
		CommitID:       commitID,
		ProjectID:      projectID,
		Prompt:         prompt,
		ParentCommitID: &anchorCommitID,
		Status:         domain.CommitStatusFailed,
		Error:          &errMsg,
		CreatedAt:      clock.Now(),
	}
	commit.SetImagePaths(nil)
	if err := e.repo.CreateCommit(ctx, commit); err != nil {
		e.log.Warn("failed to persist a failed commit", "error", err.Error())
		return "", false
	}
	return commitID, true
}

// isRetryableGeneration reports whether a generation failure is the single
// categorized transient class (timeout, network) that earns one retry. An
// upstream error that carries an HTTP status (a rejected request) is not
// retried.
func isRetryableGeneration(err error) bool {
	var adapterErr *openaiclient.Error
	if errors.As(err, &adapterErr) {
		if adapterErr.Category == openaiclient.FailureTimeout {
			return true
		}
		var statusErr httpx.HTTPStatusCoder
		return adapterErr.Category == openaiclient.FailureUpstreamError && !errors.As(err, &statusErr)
	}
	return false
}

// -------------------- evaluating --------------------

func (e *Engine) evaluatingStage(ctx context.Context, runID string) {
	e.setStage(runID, domain.StageEvaluating)
	run, _ := e.store.Get(runID)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stageConcurrency)

	for _, v := range run.Variants {
		v := v
		g.Go(func() error {
			e.evaluateVariant(gctx, runID, v)
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) evaluateVariant(ctx context.Context, runID string, v *domain.EvalVariant) {
	if v.Status != domain.VariantStatusGenerated {
		e.store.Mutate(runID, func(run *domain.EvalRun) {
			for _, rv := range run.Variants {
				if rv.VariantID == v.VariantID && rv.Status != domain.VariantStatusGenerationFailed {
					rv.Status = domain.VariantStatusEvaluationSkipped
				}
			}
			run.Progress.EvaluatedVariants = boundInt(run.Progress.EvaluatedVariants+1, 0, run.NVariants)
			run.UpdatedAt = clock.Now()
		})
		return
	}

	run, _ := e.store.Get(runID)

	imageBytes, err := e.blobs.Read(ctx, commitKeyFromVariant(v))
	if err != nil {
		e.applyNeutralRubric(runID, v.VariantID)
		return
	}

	start := time.Now()
	rubric, err := e.judge.VisionScore(ctx, run.BasePrompt, v.VariantPrompt, string(run.ObjectivePreset), imageBytes)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		e.applyRubric(runID, v.VariantID, judgeNeutralRubric(), latency, domain.VariantStatusEvaluatedDegraded)
		e.markDegraded(runID)
		return
	}
	e.applyRubric(runID, v.VariantID, rubric, latency, domain.VariantStatusEvaluated)
}

func (e *Engine) applyNeutralRubric(runID, variantID string) {
	e.applyRubric(runID, variantID, judgeNeutralRubric(), 0, domain.VariantStatusEvaluatedDegraded)
	e.markDegraded(runID)
}

func (e *Engine) applyRubric(runID, variantID string, rubric judge.Rubric, latencyMS int64, status domain.VariantStatus) {
	e.store.Mutate(runID, func(run *domain.EvalRun) {
		for _, v := range run.Variants {
			if v.VariantID != variantID {
				continue
			}
			v.PromptAdherence = rubric.PromptAdherence
			v.SubjectFidelity = rubric.SubjectFidelity
			v.CompositionQuality = rubric.CompositionQuality
			v.StyleCoherence = rubric.StyleCoherence
			v.TechnicalArtifactPenalty = rubric.TechnicalArtifactPenalty
			v.Confidence = rubric.Confidence
			v.FailureTags = rubric.FailureTags
			v.StrengthTags = rubric.StrengthTags
			v.Rationale = rubric.Rationale
			v.EvaluationLatencyMS = latencyMS
			score := compositeScore(v)
			v.CompositeScore = &score
			v.Status = status
		}
		run.Progress.EvaluatedVariants = boundInt(run.Progress.EvaluatedVariants+1, 0, run.NVariants)
		run.UpdatedAt = clock.Now()
	})
}

func judgeNeutralRubric() judge.Rubric {
	return judge.NeutralRubric()
}

// -------------------- ranking --------------------

func (e *Engine) rankingStage(runID string) {
	e.store.Mutate(runID, func(run *domain.EvalRun) {
		leaderboard, topK := rank(run.Variants)
		run.Leaderboard = leaderboard
		run.TopK = topK
		run.UpdatedAt = clock.Now()
	})
}

// -------------------- refining --------------------

func (e *Engine) refiningStage(ctx context.Context, runID string) {
	e.setStage(runID, domain.StageRefining)
	run, _ := e.store.Get(runID)

	top := run.Leaderboard
	if len(top) > 3 {
		top = top[:3]
	}
	var bottom []*domain.EvalVariant
	for i := len(run.Variants) - 1; i >= 0 && len(bottom) < 2; i-- {
		v := run.Variants[i]
		if v.Status == domain.VariantStatusGenerationFailed || len(v.FailureTags) > 0 {
			bottom = append(bottom, v)
		}
	}

	suggestions, degraded := e.refiner.Suggest(ctx, refiner.Summary{
		BasePrompt: run.BasePrompt,
		Top:        top,
		Bottom:     bottom,
	})

	e.store.Mutate(runID, func(run *domain.EvalRun) {
		run.Suggestions = suggestions
		if degraded {
			run.Degraded = true
		}
		run.UpdatedAt = clock.Now()
	})
}

// -------------------- finalize --------------------

func (e *Engine) finalizeRun(runID string) {
	e.store.Mutate(runID, func(run *domain.EvalRun) {
		now := clock.Now()
		run.Stage = domain.StageDone
		if run.Degraded {
			run.Status = domain.RunStatusCompletedDegraded
		} else {
			run.Status = domain.RunStatusCompleted
		}
		run.UpdatedAt = now
		run.CompletedAt = &now
	})
}

func boundInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func commitKeyFromVariant(v *domain.EvalVariant) string {
	if v.CommitID == nil {
		return ""
	}
	return blobstore.CommitImageKey(*v.CommitID, "png")
}
