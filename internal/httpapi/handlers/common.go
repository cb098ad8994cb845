package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/choiwab/promptsmith/internal/compare"
	pkgerrors "github.com/choiwab/promptsmith/internal/pkg/errors"
	"github.com/choiwab/promptsmith/internal/httpapi/response"
)

// respondRepoErr maps the repository's sentinel errors onto the wire error
// codes; anything unrecognized falls back to a generic 500.
func respondRepoErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.RespondError(c, http.StatusNotFound, "PROJECT_NOT_FOUND", err)
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		response.RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
	default:
		response.RespondError(c, http.StatusInternalServerError, "STORAGE_WRITE_FAILED", err)
	}
}

// respondCommitErr is respondRepoErr for call sites where a not-found
// sentinel means a missing commit rather than a missing project.
func respondCommitErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.RespondError(c, http.StatusNotFound, "COMMIT_NOT_FOUND", err)
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		response.RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
	default:
		response.RespondError(c, http.StatusInternalServerError, "STORAGE_WRITE_FAILED", err)
	}
}

// respondCompareErr maps the compare orchestrator's sentinel/typed errors
// onto the wire error codes.
func respondCompareErr(c *gin.Context, err error) {
	var pipelineErr *compare.ErrPipelineFailed
	switch {
	case errors.Is(err, compare.ErrBaselineNotSet):
		response.RespondError(c, http.StatusBadRequest, "BASELINE_NOT_SET", err)
	case errors.Is(err, compare.ErrCommitNotUsable):
		response.RespondError(c, http.StatusNotFound, "COMMIT_NOT_FOUND", err)
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.RespondError(c, http.StatusNotFound, "COMMIT_NOT_FOUND", err)
	case errors.As(err, &pipelineErr):
		response.RespondError(c, http.StatusInternalServerError, "COMPARE_PIPELINE_FAILED", err)
	default:
		response.RespondError(c, http.StatusInternalServerError, "COMPARE_PIPELINE_FAILED", err)
	}
}
