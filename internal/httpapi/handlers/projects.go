package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/choiwab/promptsmith/internal/pkg/logger"
	"github.com/choiwab/promptsmith/internal/platform/apierr"
	"github.com/choiwab/promptsmith/internal/store"
	"github.com/choiwab/promptsmith/internal/httpapi/response"
)

type ProjectHandler struct {
	log  *logger.Logger
	repo store.Repository
}

func NewProjectHandler(log *logger.Logger, repo store.Repository) *ProjectHandler {
	return &ProjectHandler{log: log.With("handler", "projects"), repo: repo}
}

type createProjectRequest struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.InvalidRequest(err))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		response.RespondAPIError(c, apierr.InvalidRequest(nil))
		return
	}
	projectID := strings.TrimSpace(req.ProjectID)
	if projectID == "" {
		projectID = uuid.New().String()
	}

	project, _, err := h.repo.EnsureProject(c.Request.Context(), projectID, req.Name)
	if err != nil {
		h.log.Error("ensure project failed", "error", err.Error())
		response.RespondError(c, http.StatusInternalServerError, "STORAGE_WRITE_FAILED", err)
		return
	}
	response.RespondCreated(c, project)
}

func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.repo.ListProjects(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "STORAGE_WRITE_FAILED", err)
		return
	}
	response.RespondOK(c, gin.H{"projects": projects})
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	projectID := c.Param("id")
	if err := h.repo.DeleteProject(c.Request.Context(), projectID); err != nil {
		respondRepoErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true, "project_id": projectID})
}
