package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/robby/linearpulse/internal/config"
	"github.com/robby/linearpulse/internal/dedupe"
	"github.com/robby/linearpulse/internal/export"
	"github.com/robby/linearpulse/internal/httpserver"
	"github.com/robby/linearpulse/internal/linear"
	"github.com/robby/linearpulse/internal/logger"
	"github.com/robby/linearpulse/internal/mail"
	"github.com/robby/linearpulse/internal/report"
	"github.com/robby/linearpulse/internal/schedule"
	"github.com/robby/linearpulse/internal/store"
	"github.com/robby/linearpulse/internal/telemetry"
)

// env is what every subcommand needs: config, logger and a signal-aware context.
type env struct {
	cfg *config.Config
	log *zap.Logger
	loc *time.Location
	ctx context.Context
}

func setup(cmd *cobra.Command) (*env, func(), error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	cleanup := func() {
		stop()
		_ = log.Sync()
	}
	return &env{cfg: cfg, log: log, loc: loc, ctx: ctx}, cleanup, nil
}

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API, chart images, BI tables and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cleanup, err := setup(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if port != "" {
				e.cfg.Server.Port = port
			}
			rec := telemetry.New()
			return serve(e, rec)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen address, e.g. :5000. Overrides server.port.")
	return cmd
}

func serve(e *env, rec *telemetry.Recorder) error {
	client, err := newLinearClient(e.cfg, e.log, rec)
	if err != nil {
		return err
	}
	h := httpserver.NewHandler(client, e.loc, e.log)
	router := httpserver.NewRouter(h, rec, e.log)
	return httpserver.Serve(e.ctx, e.cfg.Server.Port, router, e.log)
}

func newReportCmd() *cobra.Command {
	var (
		team    string
		to      string
		preview bool
	)

	cmd := &cobra.Command{
		Use:       "report [daily|overall|weekly|monthly|quarterly|yearly]",
		Short:     "Render and email one report run",
		Long:      "Render and email one report run. Nothing is sent when fetching or rendering fails.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kindNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := report.ParseKind(args[0])
			if err != nil {
				return fmt.Errorf("%w (want one of %s)", err, usageKinds())
			}

			e, cleanup, err := setup(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if to != "" {
				e.cfg.Mail.Recipients = config.SplitList(to)
			}

			runner, err := newRunner(e, nil, dedupe.Nop{})
			if err != nil {
				return err
			}

			if preview {
				paths, err := runner.Preview(e.ctx, kind, team, e.cfg.Report.SaveHTMLDir, nil)
				for _, p := range paths {
					fmt.Println(p)
				}
				return err
			}

			if err := e.cfg.ValidateMail(); err != nil {
				return err
			}
			res, err := runner.Run(e.ctx, kind, team, e.cfg.Mail.Recipients)
			fmt.Printf("sent %d, skipped %d, failed %d\n", len(res.Sent), len(res.Skipped), len(res.Failed))
			return err
		},
	}
	cmd.Flags().StringVar(&team, "team", "", "Restrict the run to one team by name.")
	cmd.Flags().StringVar(&to, "to", "", "Comma separated recipients. Overrides mail.recipients.")
	cmd.Flags().BoolVar(&preview, "preview", false, "Open the rendered reports in a browser instead of sending them.")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	var withServer bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the report schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cleanup, err := setup(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := e.cfg.ValidateMail(); err != nil {
				return err
			}

			rec := telemetry.New()
			runner, err := newRunner(e, rec, newDeduper(e))
			if err != nil {
				return err
			}

			trigger := schedule.NewCronTrigger(e.loc, e.log)
			for _, entry := range schedule.Entries(e.cfg.Schedule) {
				kind, err := report.ParseKind(entry.Kind)
				if err != nil {
					return err
				}
				job := schedule.JobFunc{
					JobName: string(kind),
					Fn: func(ctx context.Context) error {
						_, err := runner.Run(ctx, kind, "", e.cfg.Mail.Recipients)
						return err
					},
				}
				if err := trigger.AddEntry(entry, job); err != nil {
					return err
				}
			}

			g, ctx := errgroup.WithContext(e.ctx)
			e.ctx = ctx
			g.Go(func() error { return trigger.Run(ctx) })
			if withServer {
				g.Go(func() error { return serve(e, rec) })
			}
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&withServer, "serve", false, "Also serve the HTTP API and metrics.")
	return cmd
}

func newExportCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the BI tables as CSV and JSON files",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cleanup, err := setup(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if dir != "" {
				e.cfg.Export.Dir = dir
			}
			client, err := newLinearClient(e.cfg, e.log, nil)
			if err != nil {
				return err
			}

			ds, err := client.FetchAll(e.ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch data: %w", err)
			}
			now := time.Now().In(e.loc)
			tables, err := export.Build(ds, now)
			if err != nil {
				return err
			}
			paths, err := export.New(e.cfg.Export.Dir, e.log).Write(e.ctx, tables, now)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Output directory. Overrides export.dir.")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the Linear API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cleanup, err := setup(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			client, err := newLinearClient(e.cfg, e.log, nil)
			if err != nil {
				return err
			}
			viewer, err := client.Viewer(e.ctx)
			if err != nil {
				return fmt.Errorf("connection failed: %w", err)
			}
			fmt.Printf("Connected as %s <%s>\n", viewer.Name, viewer.Email)
			return nil
		},
	}
}

// newRunner wires a report runner. rec may be nil.
func newRunner(e *env, rec *telemetry.Recorder, d dedupe.Deduper) (*report.Runner, error) {
	mode, err := store.ParseTeamMode(e.cfg.Report.MultiTeamMode)
	if err != nil {
		return nil, err
	}

	runner := &report.Runner{
		Builder:     report.NewBuilder(mode, e.loc, e.log),
		Mailer:      mail.NewSMTP(e.cfg.Mail, e.log),
		Deduper:     d,
		Logger:      e.log,
		From:        e.cfg.Mail.From,
		SendDelay:   e.cfg.Report.SendDelay,
		SaveHTMLDir: e.cfg.Report.SaveHTMLDir,
	}

	var obs linear.Observer
	if rec != nil {
		obs = rec
		runner.Recorder = rec
	}
	client, err := newLinearClient(e.cfg, e.log, obs)
	if err != nil {
		return nil, err
	}
	runner.Fetcher = client
	return runner, nil
}

// newDeduper uses Redis when configured, otherwise an in-process set.
func newDeduper(e *env) dedupe.Deduper {
	if e.cfg.Redis.Addr == "" {
		return dedupe.NewMemory(e.cfg.Redis.TTL)
	}
	return dedupe.NewRedis(dedupe.NewRedisClient(e.cfg.Redis), e.cfg.Redis.TTL, e.log)
}

func kindNames() []string {
	names := make([]string, len(report.Kinds))
	for i, k := range report.Kinds {
		names[i] = string(k)
	}
	return names
}

// usageKinds is shown in errors for a bad kind argument.
func usageKinds() string {
	return strings.Join(kindNames(), ", ")
}
