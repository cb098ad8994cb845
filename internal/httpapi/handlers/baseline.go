package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/choiwab/promptsmith/internal/httpapi/response"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
	"github.com/choiwab/promptsmith/internal/platform/apierr"
	"github.com/choiwab/promptsmith/internal/store"
)

type BaselineHandler struct {
	log  *logger.Logger
	repo store.Repository
}

func NewBaselineHandler(log *logger.Logger, repo store.Repository) *BaselineHandler {
	return &BaselineHandler{log: log.With("handler", "baseline"), repo: repo}
}

type setBaselineRequest struct {
	ProjectID string `json:"project_id"`
	CommitID  string `json:"commit_id"`
}

func (h *BaselineHandler) Set(c *gin.Context) {
	var req setBaselineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.InvalidRequest(err))
		return
	}
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	req.CommitID = strings.TrimSpace(req.CommitID)
	if req.ProjectID == "" || req.CommitID == "" {
		response.RespondAPIError(c, apierr.InvalidRequest(errors.New("project_id and commit_id are required")))
		return
	}

	ctx := c.Request.Context()
	if _, err := h.repo.GetProject(ctx, req.ProjectID); err != nil {
		respondRepoErr(c, err)
		return
	}

	project, err := h.repo.SetBaseline(ctx, req.ProjectID, req.CommitID)
	if err != nil {
		respondCommitErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"project_id":                project.ProjectID,
		"active_baseline_commit_id": project.ActiveBaselineCommitID,
		"updated_at":                project.UpdatedAt,
	})
}
