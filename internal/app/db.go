package app

import (
	"fmt"
	"path/filepath"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/choiwab/promptsmith/internal/pkg/logger"
	"github.com/choiwab/promptsmith/internal/store"
)

// openDatabase dials Postgres when a DSN is configured and sqlite use
// isn't forced, otherwise falls back to a file-backed sqlite database
// under cfg.DataDir so the module runs with zero external services.
func openDatabase(cfg Config, log *logger.Logger) (*gorm.DB, error) {
	gcfg := &gorm.Config{DisableForeignKeyConstraintWhenMigrating: true}

	if !cfg.UseSQLite && cfg.PostgresDSN != "" {
		log.Info("connecting to postgres")
		db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), gcfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return db, nil
	}

	path := cfg.SQLitePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.DataDir, filepath.Base(path))
	}
	log.Info("connecting to sqlite", "path", path)
	db, err := gorm.Open(sqlite.Open(path), gcfg)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	return db, nil
}

func autoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(store.Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
