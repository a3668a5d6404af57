package models

import (
	"database/sql"
	"time"
)

// ReviewEntry represents a row in the 'unsafe_reviews' collection as the
// external analyzer wrote it. Optional fields stay nullable; they are
// normalized before leaving the service layer.
type ReviewEntry struct {
	ID        int64          `db:"id"`
	RawURL    string         `db:"raw_url"`
	Domain    sql.NullString `db:"domain"`
	Analysis  sql.NullString `db:"analysis"` // JSON object text
	LLMOutput sql.NullString `db:"llm_output"`
	Timestamp sql.NullTime   `db:"timestamp"`
	Reviewed  int            `db:"reviewed"` // 0 pending, 1 resolved
	Safe      sql.NullInt64  `db:"safe"`     // 1 safe, 0 unsafe once reviewed
}

const (
	ReviewPending  = 0
	ReviewResolved = 1
)

// PendingReview is the projection returned by GET /admin/reviews.
type PendingReview struct {
	RawURL    string         `json:"raw_url"`
	Domain    string         `json:"domain"`
	Analysis  map[string]any `json:"analysis"`
	LLMOutput string         `json:"llm_output"`
	Timestamp *time.Time     `json:"timestamp"`
}

// Metric is a scalar counter document from the 'admin' collection.
type Metric struct {
	Name  string          `db:"metric"`
	Value sql.NullFloat64 `db:"value"`
}

// Well-known metric names written by the analyzer.
const (
	MetricTotalLLMCalls = "total_LLM_calls"
	MetricAPICalls      = "api_calls"
	MetricUsedCache     = "used_cache"
	MetricHumanReviewed = "human_reviewed"
)

// Stats is the dashboard summary returned by GET /admin/stats.
type Stats struct {
	PendingCount  int64 `json:"pending_count"`
	ReviewedCount int64 `json:"reviewed_count"`
	TotalLLMCalls int64 `json:"total_LLM_calls"`
	APICalls      int64 `json:"api_calls"`
	UsedCache     int64 `json:"used_cache"`
	HumanReviewed int64 `json:"human_reviewed"`
}
