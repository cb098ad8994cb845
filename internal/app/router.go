package app

import (
	"github.com/gin-gonic/gin"

	"github.com/choiwab/promptsmith/internal/httpapi"
)

func wireRouter(handlers Handlers, middleware Middleware) *gin.Engine {
	return httpapi.NewRouter(httpapi.RouterConfig{
		ProjectHandler:  handlers.Project,
		GenerateHandler: handlers.Generate,
		BaselineHandler: handlers.Baseline,
		HistoryHandler:  handlers.History,
		CompareHandler:  handlers.Compare,
		CommitHandler:   handlers.Commit,
		EvalRunHandler:  handlers.EvalRun,
		AuthMiddleware:  middleware.Auth,
	})
}
