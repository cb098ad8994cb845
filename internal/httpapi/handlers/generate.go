package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/choiwab/promptsmith/internal/adapters/generator"
	"github.com/choiwab/promptsmith/internal/adapters/openaiclient"
	"github.com/choiwab/promptsmith/internal/blobstore"
	"github.com/choiwab/promptsmith/internal/domain"
	"github.com/choiwab/promptsmith/internal/httpapi/response"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
	"github.com/choiwab/promptsmith/internal/platform/apierr"
	"github.com/choiwab/promptsmith/internal/store"
)

// GenerateHandler produces a single commit directly, outside the eval-run
// pipeline: a root generation from a prompt alone, or an edit against a
// parent commit's image.
type GenerateHandler struct {
	log   *logger.Logger
	repo  store.Repository
	blobs blobstore.BlobStore
	gen   generator.Generator
}

func NewGenerateHandler(log *logger.Logger, repo store.Repository, blobs blobstore.BlobStore, gen generator.Generator) *GenerateHandler {
	return &GenerateHandler{log: log.With("handler", "generate"), repo: repo, blobs: blobs, gen: gen}
}

type generateRequest struct {
	ProjectID      string  `json:"project_id"`
	Prompt         string  `json:"prompt"`
	ParentCommitID *string `json:"parent_commit_id"`
	Model          string  `json:"model"`
}

func (h *GenerateHandler) Create(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.InvalidRequest(err))
		return
	}
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.ProjectID == "" || req.Prompt == "" {
		response.RespondAPIError(c, apierr.InvalidRequest(errors.New("project_id and prompt are required")))
		return
	}

	ctx := c.Request.Context()
	if _, err := h.repo.GetProject(ctx, req.ProjectID); err != nil {
		respondRepoErr(c, err)
		return
	}

	var parentImg []byte
	if req.ParentCommitID != nil && strings.TrimSpace(*req.ParentCommitID) != "" {
		parent, err := h.repo.GetCommit(ctx, *req.ParentCommitID, req.ProjectID)
		if err != nil {
			respondCommitErr(c, err)
			return
		}
		if parent.Status != domain.CommitStatusSuccess || len(parent.ImagePaths()) == 0 {
			response.RespondAPIError(c, apierr.CommitNotFound(errors.New("parent commit has no usable image")))
			return
		}
		img, err := h.blobs.Read(ctx, parent.ImagePaths()[0])
		if err != nil {
			response.RespondAPIError(c, apierr.StorageWriteFailed(err))
			return
		}
		parentImg = img
	}

	var (
		png      []byte
		degraded bool
		genErr   error
	)
	if parentImg != nil {
		png, degraded, genErr = h.gen.ImageEdit(ctx, req.Prompt, parentImg)
	} else {
		png, degraded, genErr = h.gen.TextToImage(ctx, req.Prompt)
	}

	commitID, err := h.repo.ReserveCommitID(ctx)
	if err != nil {
		response.RespondAPIError(c, apierr.StorageWriteFailed(err))
		return
	}

	commit := &domain.Commit{
		CommitID:       commitID,
		ProjectID:      req.ProjectID,
		Prompt:         req.Prompt,
		Model:          req.Model,
		ParentCommitID: req.ParentCommitID,
	}

	if genErr != nil {
		msg := genErr.Error()
		commit.Status = domain.CommitStatusFailed
		commit.Error = &msg
		commit.SetImagePaths(nil)
		if err := h.repo.CreateCommit(ctx, commit); err != nil {
			response.RespondAPIError(c, apierr.StorageWriteFailed(err))
			return
		}
		respondGenerationErr(c, genErr)
		return
	}

	key := blobstore.CommitImageKey(commitID, "png")
	if _, err := h.blobs.Write(ctx, key, png); err != nil {
		response.RespondAPIError(c, apierr.StorageWriteFailed(err))
		return
	}
	commit.Status = domain.CommitStatusSuccess
	commit.SetImagePaths([]string{key})
	if err := h.repo.CreateCommit(ctx, commit); err != nil {
		response.RespondAPIError(c, apierr.StorageWriteFailed(err))
		return
	}

	response.RespondCreated(c, gin.H{"commit": commit, "degraded": degraded})
}

func respondGenerationErr(c *gin.Context, err error) {
	var adapterErr *openaiclient.Error
	if errors.As(err, &adapterErr) {
		switch adapterErr.Category {
		case openaiclient.FailureTimeout:
			response.RespondAPIError(c, apierr.OpenAITimeout(err))
			return
		case openaiclient.FailureSafetyRejection:
			response.RespondAPIError(c, apierr.OpenAISafetyRejection(err))
			return
		default:
			response.RespondAPIError(c, apierr.OpenAIUpstream(err))
			return
		}
	}
	response.RespondAPIError(c, apierr.OpenAIUpstream(err))
}
