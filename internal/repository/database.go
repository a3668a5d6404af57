package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"phishing-admin/internal/config"
	"phishing-admin/migrations"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotConnected is returned by Store.DB before Connect succeeds or after Close.
var ErrNotConnected = errors.New("store is not connected")

// Store owns the pooled connection to the review database.
type Store struct {
	driver       string
	dsn          string
	maxOpenConns int
	logger       *zap.Logger

	mu sync.RWMutex
	db *sqlx.DB
}

// NewStore prepares a store client; no connection is made until Connect.
func NewStore(cfg config.DatabaseConfig, logger *zap.Logger) *Store {
	return &Store{
		driver:       cfg.Driver(),
		dsn:          cfg.DSN(),
		maxOpenConns: cfg.MaxOpenConns,
		logger:       logger,
	}
}

// NewStoreFromDB wraps an already opened handle, e.g. a sqlmock connection.
func NewStoreFromDB(db *sqlx.DB, logger *zap.Logger) *Store {
	return &Store{driver: db.DriverName(), db: db, logger: logger}
}

// Connect establishes the connection pool and verifies it with a ping.
// Calling Connect on a connected store is a no-op.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := sqlx.ConnectContext(ctx, s.driver, s.dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", s.driver, err)
	}

	if s.driver == config.DriverSQLite {
		// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	} else if s.maxOpenConns > 0 {
		db.SetMaxOpenConns(s.maxOpenConns)
	}

	s.db = db
	s.logger.Info("Successfully connected to the database!", zap.String("driver", s.driver))
	return nil
}

// IsConnected reports whether Connect has succeeded and Close has not been called.
func (s *Store) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil
}

// DB returns the live handle or ErrNotConnected.
func (s *Store) DB() (*sqlx.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrNotConnected
	}
	return s.db, nil
}

// Ping checks that the database is reachable right now.
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close releases the pool. The store reports disconnected afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// MigrateDB runs the embedded migrations for the store's driver.
func (s *Store) MigrateDB() error {
	db, err := s.DB()
	if err != nil {
		return err
	}

	var (
		driver migratedb.Driver
		dir    string
	)
	switch s.driver {
	case config.DriverSQLite:
		driver, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
		dir = "sqlite"
	default:
		driver, err = postgres.WithInstance(db.DB, &postgres.Config{})
		dir = "postgres"
	}
	if err != nil {
		return fmt.Errorf("couldn't get database instance for running migrations: %w", err)
	}

	source, err := iofs.New(migrations.FS, dir)
	if err != nil {
		return fmt.Errorf("couldn't open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, config.DatabaseName, driver)
	if err != nil {
		return fmt.Errorf("couldn't create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("couldn't run database migration: %w", err)
	}

	s.logger.Info("Database migration was run successfully")
	return nil
}

// Reviews returns the SQL review repository over this store.
func (s *Store) Reviews() ReviewRepository {
	return NewReviewRepository(s, s.logger)
}
