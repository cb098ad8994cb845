package evalrunworkflow

import (
	"context"

	"github.com/choiwab/promptsmith/internal/evalrun"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
)

// Activities wraps an *evalrun.Engine so each Temporal activity calls the
// exact same stage function the in-process detached goroutine calls.
// Durable mode never changes evalrun's semantics, it only moves the
// sequencing from a goroutine to a workflow.
type Activities struct {
	Engine *evalrun.Engine
	Log    *logger.Logger
}

func (a *Activities) Plan(ctx context.Context, runID string) (StageResult, error) {
	return StageResult{OK: a.Engine.RunPlanningStage(ctx, runID)}, nil
}

func (a *Activities) Generate(ctx context.Context, runID string) (StageResult, error) {
	return StageResult{OK: a.Engine.RunGeneratingStage(ctx, runID)}, nil
}

func (a *Activities) Evaluate(ctx context.Context, runID string) (StageResult, error) {
	a.Engine.RunEvaluatingStage(ctx, runID)
	return StageResult{OK: true}, nil
}

func (a *Activities) Rank(ctx context.Context, runID string) (StageResult, error) {
	a.Engine.RunRankingStage(runID)
	return StageResult{OK: true}, nil
}

func (a *Activities) Refine(ctx context.Context, runID string) (StageResult, error) {
	a.Engine.RunRefiningStage(ctx, runID)
	return StageResult{OK: true}, nil
}

func (a *Activities) Finalize(ctx context.Context, runID string) (StageResult, error) {
	a.Engine.RunFinalize(runID)
	return StageResult{OK: true}, nil
}
