package repository

import (
	"context"

	"phishing-admin/internal/config"

	"go.uber.org/zap"
)

// Database is a review store backend: SQL through Store, or the analyzer's
// MongoDB through MongoStore.
type Database interface {
	Connect(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
	MigrateDB() error
	Reviews() ReviewRepository
}

// Open picks the backend implied by the database URL. No connection is made
// until Connect.
func Open(cfg config.DatabaseConfig, logger *zap.Logger) Database {
	if cfg.Driver() == config.DriverMongo {
		return NewMongoStore(cfg, logger)
	}
	return NewStore(cfg, logger)
}

var (
	_ Database = (*Store)(nil)
	_ Database = (*MongoStore)(nil)
)
