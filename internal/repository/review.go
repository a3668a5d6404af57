package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"phishing-admin/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrReviewNotFound is returned when no entry matches a raw URL.
var ErrReviewNotFound = errors.New("review entry not found")

type ReviewRepository interface {
	ListPending(ctx context.Context, limit int) ([]*models.ReviewEntry, error)
	GetByRawURL(ctx context.Context, rawURL string) (*models.ReviewEntry, error)
	MarkReviewed(ctx context.Context, rawURL string, safe int) (int64, error)
	CountByReviewed(ctx context.Context, reviewed int) (int64, error)
	ListMetrics(ctx context.Context) ([]models.Metric, error)
	InsertEntry(ctx context.Context, entry *models.ReviewEntry) error
	UpsertMetric(ctx context.Context, name string, value float64) error
}

type reviewRepository struct {
	store  *Store
	logger *zap.Logger
}

func NewReviewRepository(store *Store, logger *zap.Logger) ReviewRepository {
	return &reviewRepository{store: store, logger: logger}
}

const reviewColumns = `id, raw_url, domain, analysis, llm_output, "timestamp", reviewed, safe`

func (r *reviewRepository) ListPending(ctx context.Context, limit int) ([]*models.ReviewEntry, error) {
	db, err := r.store.DB()
	if err != nil {
		return nil, err
	}

	query := db.Rebind(`SELECT ` + reviewColumns + ` FROM unsafe_reviews
		WHERE reviewed = ?
		ORDER BY "timestamp" ASC, id ASC
		LIMIT ?`)

	entries := []*models.ReviewEntry{}
	if err := db.SelectContext(ctx, &entries, query, models.ReviewPending, limit); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *reviewRepository) GetByRawURL(ctx context.Context, rawURL string) (*models.ReviewEntry, error) {
	db, err := r.store.DB()
	if err != nil {
		return nil, err
	}

	// A reviewed row, if any, is the one that carries the decision.
	query := db.Rebind(`SELECT ` + reviewColumns + ` FROM unsafe_reviews
		WHERE raw_url = ?
		ORDER BY reviewed DESC, id ASC
		LIMIT 1`)

	var entry models.ReviewEntry
	if err := db.GetContext(ctx, &entry, query, rawURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// MarkReviewed resolves pending entries for rawURL and returns how many rows
// changed. Already reviewed entries are left alone.
func (r *reviewRepository) MarkReviewed(ctx context.Context, rawURL string, safe int) (int64, error) {
	db, err := r.store.DB()
	if err != nil {
		return 0, err
	}

	query := db.Rebind(`UPDATE unsafe_reviews SET reviewed = ?, safe = ? WHERE raw_url = ? AND reviewed = ?`)
	result, err := db.ExecContext(ctx, query, models.ReviewResolved, safe, rawURL, models.ReviewPending)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *reviewRepository) CountByReviewed(ctx context.Context, reviewed int) (int64, error) {
	db, err := r.store.DB()
	if err != nil {
		return 0, err
	}

	var count int64
	query := db.Rebind(`SELECT COUNT(*) FROM unsafe_reviews WHERE reviewed = ?`)
	if err := db.GetContext(ctx, &count, query, reviewed); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *reviewRepository) ListMetrics(ctx context.Context) ([]models.Metric, error) {
	db, err := r.store.DB()
	if err != nil {
		return nil, err
	}

	metrics := []models.Metric{}
	if err := db.SelectContext(ctx, &metrics, `SELECT metric, value FROM admin`); err != nil {
		return nil, err
	}
	return metrics, nil
}

func (r *reviewRepository) InsertEntry(ctx context.Context, entry *models.ReviewEntry) error {
	db, err := r.store.DB()
	if err != nil {
		return err
	}

	if !entry.Timestamp.Valid {
		entry.Timestamp = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	query := `INSERT INTO unsafe_reviews (raw_url, domain, analysis, llm_output, "timestamp", reviewed, safe)
		VALUES (:raw_url, :domain, :analysis, :llm_output, :timestamp, :reviewed, :safe)`
	if db.DriverName() == "postgres" {
		rows, err := sqlx.NamedQueryContext(ctx, db, query+` RETURNING id`, entry)
		if err != nil {
			return err
		}
		defer rows.Close()
		if rows.Next() {
			if err := rows.Scan(&entry.ID); err != nil {
				return err
			}
		}
		return rows.Err()
	}

	result, err := db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return err
	}
	entry.ID, err = result.LastInsertId()
	return err
}

func (r *reviewRepository) UpsertMetric(ctx context.Context, name string, value float64) error {
	db, err := r.store.DB()
	if err != nil {
		return err
	}

	query := db.Rebind(`INSERT INTO admin (metric, value) VALUES (?, ?)
		ON CONFLICT (metric) DO UPDATE SET value = excluded.value`)
	_, err = db.ExecContext(ctx, query, name, value)
	if err != nil {
		r.logger.Error("Failed to upsert metric", zap.String("metric", name), zap.Error(err))
	}
	return err
}
