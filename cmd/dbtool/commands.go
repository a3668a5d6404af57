package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"phishing-admin/internal/models"
	"phishing-admin/internal/repository"
	"phishing-admin/internal/service"

	"github.com/sirupsen/logrus"
)

const checkSampleSize = 5

func check(ctx context.Context, repo repository.ReviewRepository, out io.Writer) error {
	pending, err := repo.CountByReviewed(ctx, models.ReviewPending)
	if err != nil {
		return fmt.Errorf("count pending: %w", err)
	}
	reviewed, err := repo.CountByReviewed(ctx, models.ReviewResolved)
	if err != nil {
		return fmt.Errorf("count reviewed: %w", err)
	}

	fmt.Fprintf(out, "unsafe_reviews: %d pending, %d reviewed\n", pending, reviewed)

	entries, err := repo.ListPending(ctx, checkSampleSize)
	if err != nil {
		return fmt.Errorf("list pending: %w", err)
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RAW_URL\tDOMAIN\tTIMESTAMP")
	for _, entry := range entries {
		review, err := service.NormalizePending(entry)
		if err != nil {
			logrus.Warnf("Entry %d has malformed analysis: %v", entry.ID, err)
		}
		ts := "-"
		if review.Timestamp != nil {
			ts = review.Timestamp.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", review.RawURL, review.Domain, ts)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	metrics, err := repo.ListMetrics(ctx)
	if err != nil {
		return fmt.Errorf("list metrics: %w", err)
	}
	fmt.Fprintf(out, "admin: %d metric(s)\n", len(metrics))
	for _, m := range metrics {
		if m.Value.Valid {
			fmt.Fprintf(out, "  %s = %g\n", m.Name, m.Value.Float64)
		} else {
			fmt.Fprintf(out, "  %s = null\n", m.Name)
		}
	}
	return nil
}

// seedFile is the layout accepted by "dbtool seed -file".
type seedFile struct {
	Reviews []struct {
		RawURL    string         `json:"raw_url"`
		Domain    string         `json:"domain"`
		LLMOutput string         `json:"llm_output"`
		Analysis  map[string]any `json:"analysis"`
	} `json:"reviews"`
	Metrics map[string]float64 `json:"metrics"`
}

func defaultSeed() seedFile {
	var s seedFile
	raw := `{
  "reviews": [
    {"raw_url": "http://secure-login.paypa1.example/verify", "llm_output": "SAFE: 0. Brand impersonation with a look-alike domain.", "analysis": {"score": 0.94}},
    {"raw_url": "https://bank-update.example.net/account?id=42", "analysis": {"llm_output": "SAFE: 0. Credential form posting to a foreign host.", "redirects": 2}},
    {"raw_url": "https://docs.example.org/shared/invoice", "domain": "docs.example.org"}
  ],
  "metrics": {"total_LLM_calls": 15, "api_calls": 124, "used_cache": 44}
}`
	_ = json.Unmarshal([]byte(raw), &s)
	return s
}

func seed(ctx context.Context, repo repository.ReviewRepository, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	file := fs.String("file", "", "JSON file with reviews and metrics")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	data := defaultSeed()
	if *file != "" {
		raw, err := os.ReadFile(*file)
		if err != nil {
			return fmt.Errorf("failed to read seed file: %w", err)
		}
		data = seedFile{}
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("failed to decode seed file: %w", err)
		}
	}

	now := time.Now().UTC()
	for i, r := range data.Reviews {
		if r.RawURL == "" {
			continue
		}
		entry := &models.ReviewEntry{
			RawURL:   r.RawURL,
			Reviewed: models.ReviewPending,
		}
		entry.Timestamp.Time, entry.Timestamp.Valid = now.Add(time.Duration(i)*time.Second), true
		if r.Domain != "" {
			entry.Domain.String, entry.Domain.Valid = r.Domain, true
		}
		if r.LLMOutput != "" {
			entry.LLMOutput.String, entry.LLMOutput.Valid = r.LLMOutput, true
		}
		if r.Analysis != nil {
			encoded, err := json.Marshal(r.Analysis)
			if err != nil {
				return fmt.Errorf("encode analysis for %s: %w", r.RawURL, err)
			}
			entry.Analysis.String, entry.Analysis.Valid = string(encoded), true
		}
		if err := repo.InsertEntry(ctx, entry); err != nil {
			return fmt.Errorf("insert %s: %w", r.RawURL, err)
		}
	}

	for name, value := range data.Metrics {
		if err := repo.UpsertMetric(ctx, name, value); err != nil {
			return fmt.Errorf("upsert metric %s: %w", name, err)
		}
	}

	logrus.Infof("Seeded %d review(s) and %d metric(s)", len(data.Reviews), len(data.Metrics))
	return nil
}
