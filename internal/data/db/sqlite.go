package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/certquiz-backend/internal/config"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

// OpenSQLite opens a file-backed (or ":memory:") database for local development.
// A single connection keeps writes serialized the way SQLite wants them.
func OpenSQLite(path string, logg *logger.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if logg != nil {
		logg.Info("opened sqlite", "path", path)
	}
	return db, nil
}

// Open picks the driver named in cfg.
func Open(cfg config.DBConfig, logg *logger.Logger) (*gorm.DB, error) {
	switch cfg.Driver {
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath, logg)
	default:
		svc, err := NewPostgresService(cfg, logg)
		if err != nil {
			return nil, err
		}
		return svc.DB(), nil
	}
}

// IsPostgres reports whether row locking clauses are supported.
func IsPostgres(tx *gorm.DB) bool {
	return tx != nil && tx.Dialector != nil && tx.Dialector.Name() == "postgres"
}
