package httpapi

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/choiwab/promptsmith/internal/httpapi/handlers"
	"github.com/choiwab/promptsmith/internal/httpapi/middleware"
)

// RouterConfig assembles the handlers the HTTP surface dispatches to.
// AuthMiddleware is optional: nil means the deployment has AuthRequired
// disabled and every route is public.
type RouterConfig struct {
	ProjectHandler  *handlers.ProjectHandler
	GenerateHandler *handlers.GenerateHandler
	BaselineHandler *handlers.BaselineHandler
	HistoryHandler  *handlers.HistoryHandler
	CompareHandler  *handlers.CompareHandler
	CommitHandler   *handlers.CommitHandler
	EvalRunHandler  *handlers.EvalRunHandler

	AuthMiddleware *middleware.AuthMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("promptsmith"))
	r.Use(middleware.AttachTraceContext())
	r.Use(middleware.CORS())

	r.GET("/healthz", handlers.Health)

	api := r.Group("/")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireBearer())
	}

	if cfg.ProjectHandler != nil {
		api.POST("/projects", cfg.ProjectHandler.Create)
		api.GET("/projects", cfg.ProjectHandler.List)
		api.DELETE("/projects/:id", cfg.ProjectHandler.Delete)
	}
	if cfg.GenerateHandler != nil {
		api.POST("/generate", cfg.GenerateHandler.Create)
	}
	if cfg.BaselineHandler != nil {
		api.POST("/baseline", cfg.BaselineHandler.Set)
	}
	if cfg.HistoryHandler != nil {
		api.GET("/history", cfg.HistoryHandler.List)
	}
	if cfg.CompareHandler != nil {
		api.POST("/compare", cfg.CompareHandler.Create)
	}
	if cfg.CommitHandler != nil {
		api.DELETE("/commits/:id", cfg.CommitHandler.Delete)
	}
	if cfg.EvalRunHandler != nil {
		api.POST("/eval-runs", cfg.EvalRunHandler.Create)
		api.GET("/eval-runs/:id", cfg.EvalRunHandler.Get)
	}

	return r
}
