package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"phishing-admin/internal/models"
	"phishing-admin/internal/notify"
	"phishing-admin/internal/repository"

	"go.uber.org/zap"
)

type ReviewService interface {
	ListPending(ctx context.Context) ([]models.PendingReview, error)
	SubmitReview(ctx context.Context, rawURL string, safe int) error
	GetStats(ctx context.Context) (*models.Stats, error)
}

// ReviewOptions tune the review access layer.
type ReviewOptions struct {
	PendingLimit   int
	Timeout        time.Duration
	StrictNotFound bool
}

type reviewService struct {
	repo     repository.ReviewRepository
	notifier notify.Notifier
	opts     ReviewOptions
	logger   *zap.Logger
}

func NewReviewService(repo repository.ReviewRepository, notifier notify.Notifier, opts ReviewOptions, logger *zap.Logger) ReviewService {
	if opts.PendingLimit <= 0 {
		opts.PendingLimit = 50
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &reviewService{
		repo:     repo,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
	}
}

// withTimeout bounds a single store round trip.
func (s *reviewService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.Timeout)
}

func (s *reviewService) ListPending(ctx context.Context) ([]models.PendingReview, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	entries, err := s.repo.ListPending(ctx, s.opts.PendingLimit)
	if err != nil {
		s.logger.Error("Failed to list pending reviews", zap.Error(err))
		return nil, dataAccess("list pending reviews", err)
	}

	reviews := make([]models.PendingReview, 0, len(entries))
	for _, entry := range entries {
		review, err := NormalizePending(entry)
		if err != nil {
			s.logger.Warn("Review entry has malformed analysis",
				zap.Int64("id", entry.ID),
				zap.String("raw_url", entry.RawURL),
				zap.Error(err))
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

func (s *reviewService) SubmitReview(ctx context.Context, rawURL string, safe int) error {
	if strings.TrimSpace(rawURL) == "" {
		return validation("raw_url is required")
	}
	if safe != 0 && safe != 1 {
		return validation("safe must be 0 or 1")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	updated, err := s.repo.MarkReviewed(ctx, rawURL, safe)
	if err != nil {
		s.logger.Error("Failed to update review", zap.String("raw_url", rawURL), zap.Error(err))
		return dataAccess("update review", err)
	}

	if updated > 0 {
		s.logger.Info("Review submitted",
			zap.String("raw_url", rawURL),
			zap.Int("safe", safe),
			zap.Int64("entries", updated))
		if err := s.notifier.ReviewSubmitted(ctx, rawURL, safe); err != nil {
			s.logger.Warn("Failed to send review notification", zap.String("raw_url", rawURL), zap.Error(err))
		}
		return nil
	}

	// Nothing pending matched: distinguish a repeat, a conflicting decision
	// and an unknown URL.
	entry, err := s.repo.GetByRawURL(ctx, rawURL)
	switch {
	case errors.Is(err, repository.ErrReviewNotFound):
		if s.opts.StrictNotFound {
			return ErrNotFound
		}
		s.logger.Debug("Review submitted for unknown url", zap.String("raw_url", rawURL))
		return nil
	case err != nil:
		s.logger.Error("Failed to look up review", zap.String("raw_url", rawURL), zap.Error(err))
		return dataAccess("look up review", err)
	}

	if entry.Safe.Valid && entry.Safe.Int64 == int64(safe) {
		return nil
	}
	s.logger.Warn("Conflicting review decision rejected",
		zap.String("raw_url", rawURL),
		zap.Int("requested_safe", safe),
		zap.Int64("recorded_safe", entry.Safe.Int64))
	return ErrAlreadyReviewed
}

func (s *reviewService) GetStats(ctx context.Context) (*models.Stats, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	metrics, err := s.repo.ListMetrics(ctx)
	if err != nil {
		s.logger.Error("Failed to read metrics", zap.Error(err))
		return nil, dataAccess("read metrics", err)
	}

	pending, err := s.repo.CountByReviewed(ctx, models.ReviewPending)
	if err != nil {
		s.logger.Error("Failed to count pending reviews", zap.Error(err))
		return nil, dataAccess("count pending reviews", err)
	}

	reviewed, err := s.repo.CountByReviewed(ctx, models.ReviewResolved)
	if err != nil {
		s.logger.Error("Failed to count reviewed entries", zap.Error(err))
		return nil, dataAccess("count reviewed entries", err)
	}

	values := metricValues(metrics)
	humanReviewed, hasHumanReviewed := values[models.MetricHumanReviewed]

	return &models.Stats{
		PendingCount:  pending,
		ReviewedCount: ReconcileReviewedCount(humanReviewed, hasHumanReviewed, reviewed),
		TotalLLMCalls: values[models.MetricTotalLLMCalls],
		APICalls:      values[models.MetricAPICalls],
		UsedCache:     values[models.MetricUsedCache],
		HumanReviewed: humanReviewed,
	}, nil
}

// metricValues reduces metric documents to name -> rounded value, skipping
// documents without a value.
func metricValues(metrics []models.Metric) map[string]int64 {
	values := make(map[string]int64, len(metrics))
	for _, m := range metrics {
		if m.Name == "" || !m.Value.Valid {
			continue
		}
		values[m.Name] = int64(math.Round(m.Value.Float64))
	}
	return values
}
