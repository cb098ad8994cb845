package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/choiwab/promptsmith/internal/domain"
	"github.com/choiwab/promptsmith/internal/evalrun"
	"github.com/choiwab/promptsmith/internal/httpapi/response"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
	"github.com/choiwab/promptsmith/internal/platform/apierr"
)

type EvalRunHandler struct {
	log    *logger.Logger
	engine *evalrun.Engine
}

func NewEvalRunHandler(log *logger.Logger, engine *evalrun.Engine) *EvalRunHandler {
	return &EvalRunHandler{log: log.With("handler", "eval_runs"), engine: engine}
}

type createEvalRunRequest struct {
	ProjectID       string   `json:"project_id"`
	BasePrompt      string   `json:"base_prompt"`
	ObjectivePreset string   `json:"objective_preset"`
	ImageModel      string   `json:"image_model"`
	NVariants       int      `json:"n_variants"`
	Quality         string   `json:"quality"`
	ParentCommitID  *string  `json:"parent_commit_id"`
	MustInclude     []string `json:"must_include"`
	MustAvoid       []string `json:"must_avoid"`
}

func (h *EvalRunHandler) Create(c *gin.Context) {
	var req createEvalRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.InvalidRequest(err))
		return
	}

	req.ProjectID = strings.TrimSpace(req.ProjectID)
	if req.ProjectID == "" {
		response.RespondAPIError(c, apierr.InvalidRequest(errors.New("project_id is required")))
		return
	}
	if len(strings.TrimSpace(req.BasePrompt)) < 5 {
		response.RespondAPIError(c, apierr.InvalidRequest(errors.New("base_prompt must be at least 5 characters")))
		return
	}
	if req.NVariants != 2 && req.NVariants != 3 {
		response.RespondAPIError(c, apierr.InvalidRequest(errors.New("n_variants must be 2 or 3")))
		return
	}
	quality := domain.Quality(req.Quality)
	if quality != domain.QualityLow && quality != domain.QualityMedium && quality != domain.QualityHigh {
		response.RespondAPIError(c, apierr.InvalidRequest(errors.New("quality must be one of low, medium, high")))
		return
	}
	preset := domain.ObjectivePreset(req.ObjectivePreset)
	if preset != domain.ObjectiveAdherence && preset != domain.ObjectiveAesthetic && preset != domain.ObjectiveProduct {
		response.RespondAPIError(c, apierr.InvalidRequest(errors.New("objective_preset must be one of adherence, aesthetic, product")))
		return
	}

	run, err := h.engine.CreateRun(c.Request.Context(), evalrun.CreateRunRequest{
		ProjectID:       req.ProjectID,
		BasePrompt:      strings.TrimSpace(req.BasePrompt),
		ObjectivePreset: preset,
		ImageModel:      req.ImageModel,
		NVariants:       req.NVariants,
		Quality:         quality,
		ParentCommitID:  req.ParentCommitID,
		MustInclude:     req.MustInclude,
		MustAvoid:       req.MustAvoid,
	})
	if err != nil {
		if errors.Is(err, evalrun.ErrParentCommitUnusable) {
			response.RespondAPIError(c, apierr.CommitNotFound(err))
			return
		}
		respondRepoErr(c, err)
		return
	}
	response.RespondCreated(c, run)
}

func (h *EvalRunHandler) Get(c *gin.Context) {
	runID := c.Param("id")
	run, ok := h.engine.GetRun(runID)
	if !ok {
		response.RespondAPIError(c, apierr.EvalRunNotFound(errors.New("eval run not found")))
		return
	}
	response.RespondOK(c, run)
}
