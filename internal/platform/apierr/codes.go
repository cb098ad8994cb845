package apierr

import "net/http"

// Error codes exhaustive for the promptsmith wire contract.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeProjectNotFound    = "PROJECT_NOT_FOUND"
	CodeCommitNotFound     = "COMMIT_NOT_FOUND"
	CodeBaselineNotSet     = "BASELINE_NOT_SET"
	CodeOpenAITimeout      = "OPENAI_TIMEOUT"
	CodeOpenAIUpstreamErr  = "OPENAI_UPSTREAM_ERROR"
	CodeOpenAISafetyReject = "OPENAI_SAFETY_REJECTION"
	CodeStorageWriteFailed = "STORAGE_WRITE_FAILED"
	CodeComparePipeline    = "COMPARE_PIPELINE_FAILED"
	CodeEvalRunFailed      = "EVAL_RUN_FAILED"
	CodeEvalRunNotFound    = "EVAL_RUN_NOT_FOUND"
)

func InvalidRequest(err error) *Error  { return New(http.StatusBadRequest, CodeInvalidRequest, err) }
func ProjectNotFound(err error) *Error { return New(http.StatusNotFound, CodeProjectNotFound, err) }
func CommitNotFound(err error) *Error  { return New(http.StatusNotFound, CodeCommitNotFound, err) }
func BaselineNotSet(err error) *Error  { return New(http.StatusBadRequest, CodeBaselineNotSet, err) }
func OpenAITimeout(err error) *Error   { return New(http.StatusGatewayTimeout, CodeOpenAITimeout, err) }
func OpenAIUpstream(err error) *Error {
	return New(http.StatusBadGateway, CodeOpenAIUpstreamErr, err)
}
func OpenAISafetyRejection(err error) *Error {
	return New(http.StatusUnprocessableEntity, CodeOpenAISafetyReject, err)
}
func StorageWriteFailed(err error) *Error {
	return New(http.StatusInternalServerError, CodeStorageWriteFailed, err)
}
func ComparePipelineFailed(err error) *Error {
	return New(http.StatusInternalServerError, CodeComparePipeline, err)
}
func EvalRunNotFound(err error) *Error {
	return New(http.StatusNotFound, CodeEvalRunNotFound, err)
}
