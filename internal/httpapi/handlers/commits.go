package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/choiwab/promptsmith/internal/httpapi/response"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
	"github.com/choiwab/promptsmith/internal/platform/apierr"
	"github.com/choiwab/promptsmith/internal/store"
)

type CommitHandler struct {
	log  *logger.Logger
	repo store.Repository
}

func NewCommitHandler(log *logger.Logger, repo store.Repository) *CommitHandler {
	return &CommitHandler{log: log.With("handler", "commits"), repo: repo}
}

// Delete cascades a commit and its descendants, clearing the project's
// active baseline if it was among the deleted. Idempotent: deleting a
// commit that no longer exists returns an empty result rather than an
// error.
func (h *CommitHandler) Delete(c *gin.Context) {
	commitID := c.Param("id")
	projectID := strings.TrimSpace(c.Query("project_id"))
	if projectID == "" {
		response.RespondAPIError(c, apierr.InvalidRequest(nil))
		return
	}

	ctx := c.Request.Context()
	if _, err := h.repo.GetProject(ctx, projectID); err != nil {
		respondRepoErr(c, err)
		return
	}

	deletedCommitIDs, deletedReportIDs, err := h.repo.DeleteCommitSubtree(ctx, projectID, commitID)
	if err != nil {
		response.RespondAPIError(c, apierr.StorageWriteFailed(err))
		return
	}

	project, err := h.repo.GetProject(ctx, projectID)
	if err != nil {
		respondRepoErr(c, err)
		return
	}

	response.RespondOK(c, gin.H{
		"project_id":                projectID,
		"deleted_commit_ids":        deletedCommitIDs,
		"deleted_report_ids":        deletedReportIDs,
		"deleted_image_objects":     len(deletedCommitIDs),
		"active_baseline_commit_id": project.ActiveBaselineCommitID,
	})
}
