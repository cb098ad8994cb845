package app

import (
	"github.com/choiwab/promptsmith/internal/httpapi/handlers"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
	"github.com/choiwab/promptsmith/internal/blobstore"
	"github.com/choiwab/promptsmith/internal/store"
)

type Handlers struct {
	Project  *handlers.ProjectHandler
	Generate *handlers.GenerateHandler
	Baseline *handlers.BaselineHandler
	History  *handlers.HistoryHandler
	Compare  *handlers.CompareHandler
	Commit   *handlers.CommitHandler
	EvalRun  *handlers.EvalRunHandler
}

func wireHandlers(log *logger.Logger, repo store.Repository, blobs blobstore.BlobStore, services Services) Handlers {
	log.Info("wiring handlers")
	return Handlers{
		Project:  handlers.NewProjectHandler(log, repo),
		Generate: handlers.NewGenerateHandler(log, repo, blobs, services.Generator),
		Baseline: handlers.NewBaselineHandler(log, repo),
		History:  handlers.NewHistoryHandler(log, repo),
		Compare:  handlers.NewCompareHandler(log, services.Compare),
		Commit:   handlers.NewCommitHandler(log, repo),
		EvalRun:  handlers.NewEvalRunHandler(log, services.EvalRun),
	}
}
