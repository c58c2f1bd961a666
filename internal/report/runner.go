package report

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/robby/linearpulse/internal/dedupe"
	"github.com/robby/linearpulse/internal/domain"
	"github.com/robby/linearpulse/internal/mail"
	"github.com/robby/linearpulse/internal/store"
)

// Delivery outcomes passed to Recorder.
const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Fetcher loads the dataset a run reports on. linear.Client implements it.
type Fetcher interface {
	FetchAll(ctx context.Context) (domain.Dataset, error)
}

// Recorder counts delivery outcomes. telemetry.Recorder implements it.
type Recorder interface {
	RecordReportSent(kind, status string)
}

// Runner executes report runs end to end: fetch, plan, render every report,
// then deliver them one by one with a throttle delay between sends.
type Runner struct {
	Fetcher  Fetcher
	Builder  *Builder
	Mailer   mail.Mailer
	Deduper  dedupe.Deduper
	Recorder Recorder
	Logger   *zap.Logger

	From      string
	SendDelay time.Duration
	// SaveHTMLDir, when set, receives a copy of each rendered report.
	SaveHTMLDir string

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Result summarizes a run.
type Result struct {
	Sent    []string
	Skipped []string
	Failed  []string
}

// Render fetches data and renders every report of a run without sending.
// Any failure aborts the whole run.
func (r *Runner) Render(ctx context.Context, k Kind, team string, recipients []string) ([]Report, error) {
	now := r.now()

	ds, err := r.Fetcher.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data: %w", err)
	}
	st := store.New()
	st.Load(ds, now)

	specs, err := r.Builder.Plan(st, k, team, recipients, now)
	if err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(specs))
	for _, spec := range specs {
		rep, err := r.Builder.Build(st, spec, now)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s report: %w", spec.Name(), err)
		}
		r.logger().Info("Report rendered",
			zap.String("kind", string(k)),
			zap.String("report", spec.Name()),
			zap.Int("projects", rep.Projects),
			zap.Int("shared", rep.Shared),
		)
		if err := r.saveHTML(rep, now); err != nil {
			r.logger().Warn("Failed to save report HTML", zap.String("report", spec.Name()), zap.Error(err))
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// Run renders and delivers a run. Nothing is sent when rendering fails.
// A failed delivery is logged and the run continues with the next report;
// the returned error then lists every failure.
func (r *Runner) Run(ctx context.Context, k Kind, team string, recipients []string) (Result, error) {
	if len(recipients) == 0 {
		return Result{}, mail.ErrNoRecipients
	}

	reports, err := r.Render(ctx, k, team, recipients)
	if err != nil {
		return Result{}, err
	}

	var res Result
	var errs []error
	day := r.now().In(r.Builder.loc)

	for i, rep := range reports {
		name := rep.Spec.Name()
		key := dedupe.Key(string(k), name, day)

		if !r.deduper().AcquireOnce(ctx, key) {
			res.Skipped = append(res.Skipped, name)
			r.record(k, StatusSkipped)
			continue
		}

		err := r.Mailer.Send(ctx, mail.Message{
			From:    r.From,
			To:      rep.Spec.Recipients,
			Subject: rep.Subject,
			HTML:    rep.HTML,
			Inline:  rep.Charts,
		})
		if err != nil {
			r.deduper().Release(ctx, key)
			r.logger().Error("Failed to send report", zap.String("report", name), zap.Error(err))
			res.Failed = append(res.Failed, name)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			r.record(k, StatusFailed)
		} else {
			r.logger().Info("Report sent", zap.String("report", name), zap.String("subject", rep.Subject))
			res.Sent = append(res.Sent, name)
			r.record(k, StatusSent)
		}

		if i < len(reports)-1 && r.SendDelay > 0 {
			if err := r.sleep(ctx, r.SendDelay); err != nil {
				return res, err
			}
		}
	}

	return res, errors.Join(errs...)
}

// Preview renders a run and opens each report in the browser, with the chart
// references inlined as data URIs so the file is self-contained.
func (r *Runner) Preview(ctx context.Context, k Kind, team string, dir string, open func(string) error) ([]string, error) {
	if open == nil {
		open = browser.OpenFile
	}
	reports, err := r.Render(ctx, k, team, nil)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = os.TempDir()
	}

	var paths []string
	for _, rep := range reports {
		path := filepath.Join(dir, fileName(rep, r.now()))
		if err := os.WriteFile(path, []byte(InlineCharts(rep)), 0o644); err != nil {
			return paths, fmt.Errorf("failed to write preview: %w", err)
		}
		if err := open(path); err != nil {
			return paths, fmt.Errorf("failed to open preview: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// InlineCharts returns the report HTML with cid: image references replaced by
// data URIs.
func InlineCharts(rep Report) string {
	html := rep.HTML
	for _, c := range rep.Charts {
		uri := "data:" + c.ContentType + ";base64," + base64.StdEncoding.EncodeToString(c.Data)
		html = strings.ReplaceAll(html, "cid:"+c.CID, uri)
	}
	return html
}

func (r *Runner) saveHTML(rep Report, now time.Time) error {
	if r.SaveHTMLDir == "" {
		return nil
	}
	if err := os.MkdirAll(r.SaveHTMLDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(r.SaveHTMLDir, fileName(rep, now)), []byte(InlineCharts(rep)), 0o644)
}

// fileName is "<kind>-<scope>-YYYY-MM-DD.html" with the scope slugged.
func fileName(rep Report, now time.Time) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '-'
	}, rep.Spec.Name())
	return fmt.Sprintf("%s-%s-%s.html", rep.Spec.Kind, slug, now.Format("2006-01-02"))
}

func (r *Runner) record(k Kind, status string) {
	if r.Recorder != nil {
		r.Recorder.RecordReportSent(string(k), status)
	}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Runner) deduper() dedupe.Deduper {
	if r.Deduper == nil {
		return dedupe.Nop{}
	}
	return r.Deduper
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
