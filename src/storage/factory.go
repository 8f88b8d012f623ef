package storage

import (
	"fmt"

	"market-sync/src/interfaces"
	"market-sync/src/logger"
	"market-sync/src/models"
)

// NewDatabase selects the backend named by storage.db_type.
func NewDatabase(cfg *models.MConfig, log *logger.Logger) (interfaces.IDatabase, error) {
	switch cfg.Storage.DBType {
	case "sqlite":
		return NewAsyncSQLiteDB(cfg, log)
	case "postgres":
		return NewPostgresDB(cfg, log)
	case "redis":
		return NewRedisDB(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Storage.DBType)
	}
}
