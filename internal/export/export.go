// Package export writes the flattened workspace tables to disk as JSON and
// CSV files for BI tools. Every file name carries the export date.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/robby/linearpulse/internal/analytics"
	"github.com/robby/linearpulse/internal/domain"
	"github.com/robby/linearpulse/internal/flatten"
)

// Tables is the export payload. Field names match the combined JSON document.
type Tables struct {
	Projects []flatten.ProjectRow `json:"Projects"`
	Issues   []flatten.IssueRow   `json:"Issues"`
	Teams    []flatten.TeamRow    `json:"Teams"`
	Metrics  []analytics.Metrics  `json:"Metrics"`
}

// Build flattens ds and computes its metrics row.
func Build(ds domain.Dataset, now time.Time) (Tables, error) {
	rows, err := flatten.Dataset(ds, now)
	if err != nil {
		return Tables{}, fmt.Errorf("failed to flatten dataset: %w", err)
	}
	return Tables{
		Projects: nonNil(rows.Projects),
		Issues:   nonNil(rows.Issues),
		Teams:    nonNil(rows.Teams),
		Metrics:  []analytics.Metrics{analytics.ExportMetrics(ds, now)},
	}, nil
}

// Exporter writes Tables into a directory.
type Exporter struct {
	dir    string
	logger *zap.Logger
}

// New creates an Exporter writing into dir, which is created on demand.
func New(dir string, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{dir: dir, logger: logger}
}

// file is one output file and its encoder.
type file struct {
	name  string
	write func(path string) error
}

// Write writes every JSON and CSV file for t concurrently and returns the
// paths written, in a stable order.
func (e *Exporter) Write(ctx context.Context, t Tables, now time.Time) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export dir: %w", err)
	}

	date := now.Format("2006-01-02")
	files := []file{
		{"projects_" + date + ".json", jsonWriter(t.Projects)},
		{"issues_" + date + ".json", jsonWriter(t.Issues)},
		{"teams_" + date + ".json", jsonWriter(t.Teams)},
		{"metrics_" + date + ".json", jsonWriter(t.Metrics)},
		{"linear_data_" + date + ".json", jsonWriter(t)},
		{"projects_" + date + ".csv", csvWriter(projectRecords(t.Projects))},
		{"issues_" + date + ".csv", csvWriter(issueRecords(t.Issues))},
		{"teams_" + date + ".csv", csvWriter(t.Teams)},
		{"metrics_" + date + ".csv", csvWriter(t.Metrics)},
	}

	paths := make([]string, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, f := range files {
		i, f := i, f
		paths[i] = filepath.Join(e.dir, f.name)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := f.write(paths[i]); err != nil {
				return fmt.Errorf("failed to write %s: %w", f.name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Info("Export written",
		zap.String("dir", e.dir),
		zap.Int("projects", len(t.Projects)),
		zap.Int("issues", len(t.Issues)),
		zap.Int("teams", len(t.Teams)),
	)
	return paths, nil
}

func jsonWriter(v any) func(string) error {
	return func(path string) error {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0o644)
	}
}

func csvWriter[T any](rows []T) func(string) error {
	return func(path string) error {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := WriteCSV(f, rows); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
