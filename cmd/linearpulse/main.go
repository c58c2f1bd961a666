package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robby/linearpulse/internal/analytics"
	"github.com/robby/linearpulse/internal/config"
	"github.com/robby/linearpulse/internal/linear"
	"github.com/robby/linearpulse/internal/logger"
	"github.com/robby/linearpulse/internal/store"
	"github.com/robby/linearpulse/internal/tui"
)

var (
	// CLI flags
	configFlag string
	teamFlag   string
	rangeFlag  string
	modeFlag   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "linearpulse",
		Short: "Reporting and dashboards for Linear workspaces",
		Long: `linearpulse turns the projects and issues of a Linear workspace into
dashboards, scheduled email reports and BI exports.

Without a subcommand it opens the terminal dashboard.

Authentication (first match wins):
  1. linear.api_key in the config file
  2. Environment variable: LINEAR_API_KEY
  3. Key file: ~/.config/linearpulse/api_key`,
		SilenceUsage: true,
		RunE:         runDashboard,
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "config.yaml", "Path to the YAML config file. A missing file uses defaults.")
	rootCmd.Flags().StringVar(&teamFlag, "team", "", `Team name, or "all". Skips the team picker.`)
	rootCmd.Flags().StringVar(&rangeFlag, "range", "all", "Date range: 7days, 30days, 90days, 180days, 365days or all.")
	rootCmd.Flags().StringVar(&modeFlag, "mode", "", "Multi-team mode: all, primary or exclude. Defaults to report.multi_team_mode.")

	rootCmd.AddCommand(
		newServeCmd(),
		newReportCmd(),
		newScheduleCmd(),
		newExportCmd(),
		newCheckCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}

	opts, err := dashboardOptions(cfg, rangeFlag, modeFlag)
	if err != nil {
		return err
	}
	opts.Team = teamFlag

	// The dashboard owns the terminal, so logs go to a file or nowhere.
	log, err := logger.NewFile(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	opts.Logger = log

	client, err := newLinearClient(cfg, log, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := tui.NewAppModel(client, store.New(), ctx, opts)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}

// dashboardOptions resolves the range and mode flags. An empty mode falls
// back to the configured multi-team mode.
func dashboardOptions(cfg *config.Config, rangeArg, modeArg string) (tui.Options, error) {
	r, err := analytics.ParseRange(rangeArg, "", "")
	if err != nil {
		return tui.Options{}, err
	}
	if modeArg == "" {
		modeArg = cfg.Report.MultiTeamMode
	}
	mode, err := store.ParseTeamMode(modeArg)
	if err != nil {
		return tui.Options{}, err
	}
	return tui.Options{Range: r, Mode: mode}, nil
}

// newLinearClient resolves the API key and builds the GraphQL client.
// obs may be nil.
func newLinearClient(cfg *config.Config, log *zap.Logger, obs linear.Observer) (*linear.Client, error) {
	opts := []linear.Option{
		linear.WithLogger(log),
		linear.WithIssueLimit(cfg.Linear.IssueLimit),
	}
	if obs != nil {
		opts = append(opts, linear.WithObserver(obs))
	}

	client, err := linear.NewFromConfig(cfg.Linear.Endpoint, cfg.Linear.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w\n\nSet linear.api_key in %s or the LINEAR_API_KEY environment variable", err, configFlag)
	}
	return client, nil
}
