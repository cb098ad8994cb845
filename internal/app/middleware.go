package app

import (
	"github.com/choiwab/promptsmith/internal/httpapi/middleware"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("wiring middleware")
	var auth *middleware.AuthMiddleware
	if cfg.AuthRequired {
		auth = middleware.NewAuthMiddleware(log, cfg.JWTSecretKey, cfg.APIKeyHash)
	}
	return Middleware{Auth: auth}
}
