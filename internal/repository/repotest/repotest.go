// Package repotest builds throwaway SQLite stores for tests.
package repotest

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"phishing-admin/internal/config"
	"phishing-admin/internal/models"
	"phishing-admin/internal/repository"

	"go.uber.org/zap"
)

// NewSQLiteStore returns a connected, migrated store backed by a temp file.
func NewSQLiteStore(t testing.TB) *repository.Store {
	t.Helper()

	cfg := config.DatabaseConfig{URL: "sqlite:" + filepath.Join(t.TempDir(), "reviews.db")}
	store := repository.NewStore(cfg, zap.NewNop())
	if err := store.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.MigrateDB(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

// Entry builds a pending review entry; analysis may be nil.
func Entry(rawURL string, at time.Time, analysis map[string]any) *models.ReviewEntry {
	e := &models.ReviewEntry{
		RawURL:    rawURL,
		Timestamp: sql.NullTime{Time: at.UTC(), Valid: true},
		Reviewed:  models.ReviewPending,
	}
	if analysis != nil {
		raw, _ := json.Marshal(analysis)
		e.Analysis = sql.NullString{String: string(raw), Valid: true}
	}
	return e
}
