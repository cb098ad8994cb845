package evalrunworkflow

// ActivityPlan, ActivityGenerate, etc. name the activities registered
// against the worker's task queue. The workflow calls them by name so the
// activity implementations can live on a struct with engine dependencies
// (see Activities) without the workflow itself importing evalrun. No
// activity is registered under ActivityFailTerm.
const (
	ActivityPlan     = "EvalRunPlan"
	ActivityGenerate = "EvalRunGenerate"
	ActivityEvaluate = "EvalRunEvaluate"
	ActivityRank     = "EvalRunRank"
	ActivityRefine   = "EvalRunRefine"
	ActivityFinalize = "EvalRunFinalize"
	ActivityFailTerm = "EvalRunTerminalizeFailed"
)

// StageResult is every activity's return shape: ok tells the workflow
// whether to continue the stage sequence (false only on planning/generating
// per the in-process semantics, where an unrecoverable failure short-circuits
// the remaining stages).
type StageResult struct {
	OK bool
}
