package service

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"phishing-admin/internal/models"
)

const (
	UnknownDomain       = "unknown"
	NoAnalysisAvailable = "No analysis available"

	analysisLLMOutputKey = "llm_output"
)

// NormalizePending projects a stored entry into its API shape.
//
// Precedence:
//
//   - domain: stored domain, then the hostname of raw_url, then "unknown".
//   - llm_output: stored llm_output, then analysis.llm_output when it is a
//     non-empty string, then "No analysis available".
//   - analysis: the decoded JSON object, or an empty object.
//
// A malformed analysis document still yields a usable projection; the decode
// error is returned alongside it for logging.
func NormalizePending(entry *models.ReviewEntry) (models.PendingReview, error) {
	analysis, decodeErr := decodeAnalysis(entry.Analysis.String)

	review := models.PendingReview{
		RawURL:    entry.RawURL,
		Domain:    entryDomain(entry),
		Analysis:  analysis,
		LLMOutput: entryLLMOutput(entry, analysis),
	}
	if entry.Timestamp.Valid {
		ts := entry.Timestamp.Time.UTC()
		review.Timestamp = &ts
	}
	return review, decodeErr
}

func entryDomain(entry *models.ReviewEntry) string {
	if d := strings.TrimSpace(entry.Domain.String); entry.Domain.Valid && d != "" {
		return d
	}
	if host := hostname(entry.RawURL); host != "" {
		return host
	}
	return UnknownDomain
}

func hostname(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func entryLLMOutput(entry *models.ReviewEntry, analysis map[string]any) string {
	if entry.LLMOutput.Valid && entry.LLMOutput.String != "" {
		return entry.LLMOutput.String
	}
	if s, ok := analysis[analysisLLMOutputKey].(string); ok && s != "" {
		return s
	}
	return NoAnalysisAvailable
}

func decodeAnalysis(raw string) (map[string]any, error) {
	analysis := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return analysis, nil
	}
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return map[string]any{}, fmt.Errorf("decode analysis: %w", err)
	}
	if analysis == nil {
		// JSON null
		analysis = map[string]any{}
	}
	return analysis, nil
}

// ReconcileReviewedCount picks the reviewed count shown on the dashboard.
// The analyzer-maintained human_reviewed metric wins whenever its document
// exists, including a zero value; otherwise the live count is used.
func ReconcileReviewedCount(metricValue int64, metricPresent bool, liveCount int64) int64 {
	if metricPresent {
		return metricValue
	}
	return liveCount
}

