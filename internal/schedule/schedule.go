// Package schedule runs report jobs on cron expressions in a fixed timezone.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/robby/linearpulse/internal/config"
)

// Job is one unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Name() string                  { return j.JobName }
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }

// Trigger decides when jobs run.
type Trigger interface {
	// Add registers job under a cron expression.
	Add(spec string, job Job) error
	// Run fires jobs until ctx is done, then waits for running jobs.
	Run(ctx context.Context) error
}

// Guard reports whether a job should run at the given local time. Cron
// cannot express "last day of the month", so those entries fire on every
// candidate day and a Guard filters them.
type Guard func(t time.Time) bool

// Entry is one configured report schedule.
type Entry struct {
	Kind  string
	Spec  string
	Guard Guard
}

// Entries maps the schedule config to entries. Blank expressions are
// skipped, which disables that report.
func Entries(cfg config.ScheduleConfig) []Entry {
	all := []Entry{
		{Kind: "daily", Spec: cfg.Daily},
		{Kind: "weekly", Spec: cfg.Weekly},
		{Kind: "monthly", Spec: cfg.Monthly, Guard: IsLastDayOfMonth},
		{Kind: "quarterly", Spec: cfg.Quarterly, Guard: IsQuarterEnd},
		{Kind: "yearly", Spec: cfg.Yearly, Guard: IsYearEnd},
	}
	var out []Entry
	for _, e := range all {
		if e.Spec != "" {
			out = append(out, e)
		}
	}
	return out
}

// IsLastDayOfMonth reports whether tomorrow falls in a different month.
func IsLastDayOfMonth(t time.Time) bool {
	return t.AddDate(0, 0, 1).Month() != t.Month()
}

// IsQuarterEnd reports whether t is Mar 31, Jun 30, Sep 30 or Dec 31.
func IsQuarterEnd(t time.Time) bool {
	return t.Month()%3 == 0 && IsLastDayOfMonth(t)
}

// IsYearEnd reports whether t is Dec 31.
func IsYearEnd(t time.Time) bool {
	return t.Month() == time.December && t.Day() == 31
}

// CronTrigger is a Trigger backed by robfig/cron with standard five-field
// expressions evaluated in a fixed location.
type CronTrigger struct {
	cron   *cron.Cron
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
	ctx    context.Context
}

// NewCronTrigger creates a trigger evaluating expressions in loc.
func NewCronTrigger(loc *time.Location, logger *zap.Logger) *CronTrigger {
	return &CronTrigger{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger{logger.Sugar()}),
			cron.WithChain(cron.Recover(cronLogger{logger.Sugar()})),
		),
		loc:    loc,
		logger: logger,
		now:    time.Now,
		ctx:    context.Background(),
	}
}

// Add registers job under spec.
func (t *CronTrigger) Add(spec string, job Job) error {
	if _, err := t.cron.AddFunc(spec, func() { t.fire(job) }); err != nil {
		return fmt.Errorf("failed to schedule %s at %q: %w", job.Name(), spec, err)
	}
	t.logger.Info("Job scheduled",
		zap.String("job", job.Name()),
		zap.String("spec", spec),
		zap.String("timezone", t.loc.String()),
	)
	return nil
}

// AddEntry registers job for e, applying e.Guard when set.
func (t *CronTrigger) AddEntry(e Entry, job Job) error {
	if e.Guard != nil {
		job = guarded{job: job, guard: e.Guard, loc: t.loc, now: t.now, logger: t.logger}
	}
	return t.Add(e.Spec, job)
}

// Run starts the scheduler and blocks until ctx is done.
func (t *CronTrigger) Run(ctx context.Context) error {
	t.ctx = ctx
	t.cron.Start()
	t.logger.Info("Scheduler started", zap.Int("jobs", len(t.cron.Entries())))

	<-ctx.Done()

	stopped := t.cron.Stop()
	<-stopped.Done()
	t.logger.Info("Scheduler stopped")
	return nil
}

func (t *CronTrigger) fire(job Job) {
	start := t.now()
	t.logger.Info("Running job", zap.String("job", job.Name()))

	if err := job.Run(t.ctx); err != nil {
		t.logger.Error("Job failed",
			zap.String("job", job.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	t.logger.Info("Job finished",
		zap.String("job", job.Name()),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// guarded runs job only when guard accepts the current local time.
type guarded struct {
	job    Job
	guard  Guard
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

func (g guarded) Name() string { return g.job.Name() }

func (g guarded) Run(ctx context.Context) error {
	local := g.now().In(g.loc)
	if !g.guard(local) {
		g.logger.Debug("Job skipped by date guard",
			zap.String("job", g.job.Name()),
			zap.String("date", local.Format("2006-01-02")),
		)
		return nil
	}
	return g.job.Run(ctx)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
