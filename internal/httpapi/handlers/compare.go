package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/choiwab/promptsmith/internal/compare"
	"github.com/choiwab/promptsmith/internal/httpapi/response"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
	"github.com/choiwab/promptsmith/internal/platform/apierr"
)

type CompareHandler struct {
	log          *logger.Logger
	orchestrator *compare.Orchestrator
}

func NewCompareHandler(log *logger.Logger, orchestrator *compare.Orchestrator) *CompareHandler {
	return &CompareHandler{log: log.With("handler", "compare"), orchestrator: orchestrator}
}

type compareRequest struct {
	ProjectID         string  `json:"project_id"`
	CandidateCommitID string  `json:"candidate_commit_id"`
	BaselineCommitID  *string `json:"baseline_commit_id"`
}

func (h *CompareHandler) Create(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.InvalidRequest(err))
		return
	}
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	req.CandidateCommitID = strings.TrimSpace(req.CandidateCommitID)
	if req.ProjectID == "" || req.CandidateCommitID == "" {
		response.RespondAPIError(c, apierr.InvalidRequest(errors.New("project_id and candidate_commit_id are required")))
		return
	}
	var baselineID string
	if req.BaselineCommitID != nil {
		baselineID = strings.TrimSpace(*req.BaselineCommitID)
	}

	report, err := h.orchestrator.Compare(c.Request.Context(), req.ProjectID, req.CandidateCommitID, baselineID)
	if err != nil {
		h.log.Error("compare failed", "project_id", req.ProjectID, "error", err.Error())
		respondCompareErr(c, err)
		return
	}
	response.RespondCreated(c, report)
}
