package app

import (
	"gorm.io/gorm"

	"github.com/choiwab/promptsmith/internal/pkg/logger"
	"github.com/choiwab/promptsmith/internal/store"
)

func wireRepo(db *gorm.DB, log *logger.Logger) store.Repository {
	log.Info("wiring repository")
	return store.NewGormRepository(db, log)
}
