package evalrunworkflow

import (
	"time"

	"go.temporal.io/sdk/workflow"
)

// Workflow drives one eval run's plan/generate/evaluate/rank/refine
// sequence as durable activities. It answers spec.md's open question on
// durability ("if durability is desired it must be added") without
// changing the engine's in-process semantics: the default HTTP-triggered
// path never touches Temporal, this is an alternative entrypoint into the
// same stage functions.
func Workflow(ctx workflow.Context, runID string) error {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		HeartbeatTimeout:    30 * time.Second,
	})

	var planned StageResult
	if err := workflow.ExecuteActivity(ctx, ActivityPlan, runID).Get(ctx, &planned); err != nil {
		return err
	}
	if !planned.OK {
		return nil
	}

	var generated StageResult
	if err := workflow.ExecuteActivity(ctx, ActivityGenerate, runID).Get(ctx, &generated); err != nil {
		return err
	}
	if !generated.OK {
		return nil
	}

	if err := workflow.ExecuteActivity(ctx, ActivityEvaluate, runID).Get(ctx, nil); err != nil {
		return err
	}
	if err := workflow.ExecuteActivity(ctx, ActivityRank, runID).Get(ctx, nil); err != nil {
		return err
	}
	if err := workflow.ExecuteActivity(ctx, ActivityRefine, runID).Get(ctx, nil); err != nil {
		return err
	}
	return workflow.ExecuteActivity(ctx, ActivityFinalize, runID).Get(ctx, nil)
}
