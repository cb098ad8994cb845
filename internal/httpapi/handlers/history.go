package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/choiwab/promptsmith/internal/httpapi/response"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
	"github.com/choiwab/promptsmith/internal/platform/apierr"
	"github.com/choiwab/promptsmith/internal/store"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 50
)

type HistoryHandler struct {
	log  *logger.Logger
	repo store.Repository
}

func NewHistoryHandler(log *logger.Logger, repo store.Repository) *HistoryHandler {
	return &HistoryHandler{log: log.With("handler", "history"), repo: repo}
}

func (h *HistoryHandler) List(c *gin.Context) {
	projectID := strings.TrimSpace(c.Query("project_id"))
	if projectID == "" {
		response.RespondAPIError(c, apierr.InvalidRequest(nil))
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.RespondAPIError(c, apierr.InvalidRequest(nil))
			return
		}
		limit = n
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	cursor := c.Query("cursor")

	ctx := c.Request.Context()
	project, err := h.repo.GetProject(ctx, projectID)
	if err != nil {
		respondRepoErr(c, err)
		return
	}

	items, nextCursor, err := h.repo.ListHistory(ctx, projectID, limit, cursor)
	if err != nil {
		respondRepoErr(c, err)
		return
	}

	body := gin.H{"items": items, "active_baseline_commit_id": project.ActiveBaselineCommitID}
	if nextCursor != "" {
		body["next_cursor"] = nextCursor
	}
	response.RespondOK(c, body)
}
