package service

import (
	"database/sql"
	"testing"
	"time"

	"phishing-admin/internal/models"

	"github.com/stretchr/testify/assert"
)

func str(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

func TestNormalizePendingDomain(t *testing.T) {
	tests := []struct {
		name   string
		entry  models.ReviewEntry
		domain string
	}{
		{"stored domain wins", models.ReviewEntry{RawURL: "http://a.example/x", Domain: str("stored.example")}, "stored.example"},
		{"hostname from url", models.ReviewEntry{RawURL: "https://login.bank.example:8443/auth?x=1"}, "login.bank.example"},
		{"blank stored domain", models.ReviewEntry{RawURL: "http://b.example", Domain: str("  ")}, "b.example"},
		{"no scheme", models.ReviewEntry{RawURL: "not a url"}, "unknown"},
		{"unparseable", models.ReviewEntry{RawURL: "http://[::1"}, "unknown"},
		{"empty url", models.ReviewEntry{}, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			review, err := NormalizePending(&tt.entry)
			assert.NoError(t, err)
			assert.Equal(t, tt.domain, review.Domain)
		})
	}
}

func TestNormalizePendingLLMOutput(t *testing.T) {
	tests := []struct {
		name   string
		entry  models.ReviewEntry
		output string
	}{
		{"top level wins", models.ReviewEntry{LLMOutput: str("SAFE: 0"), Analysis: str(`{"llm_output":"nested"}`)}, "SAFE: 0"},
		{"nested fallback", models.ReviewEntry{Analysis: str(`{"llm_output":"nested verdict"}`)}, "nested verdict"},
		{"empty top level falls through", models.ReviewEntry{LLMOutput: str(""), Analysis: str(`{"llm_output":"nested"}`)}, "nested"},
		{"nested not a string", models.ReviewEntry{Analysis: str(`{"llm_output":42}`)}, NoAnalysisAvailable},
		{"nothing", models.ReviewEntry{}, NoAnalysisAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			review, err := NormalizePending(&tt.entry)
			assert.NoError(t, err)
			assert.Equal(t, tt.output, review.LLMOutput)
		})
	}
}

func TestNormalizePendingAnalysis(t *testing.T) {
	review, err := NormalizePending(&models.ReviewEntry{RawURL: "http://a.example", Analysis: str(`{"score":0.93,"redirects":2,"ssl":false}`)})
	assert.NoError(t, err)
	assert.Equal(t, map[string]any{"score": 0.93, "redirects": float64(2), "ssl": false}, review.Analysis)

	review, err = NormalizePending(&models.ReviewEntry{RawURL: "http://a.example", Analysis: str(`{broken`)})
	assert.Error(t, err)
	assert.Equal(t, map[string]any{}, review.Analysis)
	assert.Equal(t, "a.example", review.Domain)

	review, err = NormalizePending(&models.ReviewEntry{Analysis: str(`null`)})
	assert.NoError(t, err)
	assert.NotNil(t, review.Analysis)
}

func TestNormalizePendingTimestamp(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("X", 3600))
	review, _ := NormalizePending(&models.ReviewEntry{Timestamp: sql.NullTime{Time: at, Valid: true}})
	if assert.NotNil(t, review.Timestamp) {
		assert.True(t, review.Timestamp.Equal(at))
		assert.Equal(t, time.UTC, review.Timestamp.Location())
	}

	review, _ = NormalizePending(&models.ReviewEntry{})
	assert.Nil(t, review.Timestamp)
}

func TestReconcileReviewedCount(t *testing.T) {
	assert.Equal(t, int64(8), ReconcileReviewedCount(8, true, 3), "metric document wins")
	assert.Equal(t, int64(0), ReconcileReviewedCount(0, true, 3), "zero metric still wins")
	assert.Equal(t, int64(3), ReconcileReviewedCount(0, false, 3), "live count without metric")
}
