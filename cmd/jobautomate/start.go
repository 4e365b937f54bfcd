package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sanathsadiga/jobautomate/internal/config"
	"github.com/sanathsadiga/jobautomate/internal/model"
	"github.com/sanathsadiga/jobautomate/internal/scheduler"
)

var runOnStart bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler daemon",
	Long:  "Runs the configured search on the cron schedule; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	startCmd.Flags().BoolVar(&runOnStart, "now", false, "run one cycle immediately instead of waiting for the first tick")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap(os.Stdout)
	if err != nil {
		return err
	}
	if err := cfg.ValidateSchedule(); err != nil {
		logger.Error("invalid config", "error", err)
		return err
	}

	logger.Info("config loaded",
		"schedule", cfg.Schedule,
		"companies", len(cfg.Companies),
		"role", cfg.Search.Role,
		"location", cfg.Search.Location,
		"candidate_years", cfg.CandidateYears,
		"database", cfg.Database.Driver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobStore, err := openStore(cfg, false, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer jobStore.Close()

	n, closeNotifier, err := setupNotifier(ctx, cfg, &http.Client{Timeout: cfg.Sources.HTTPTimeout}, logger)
	if err != nil {
		logger.Error("failed to set up notifier", "error", err)
		return err
	}
	defer closeNotifier()

	agg := newAggregator(cfg, buildRegistry(cfg, logger), jobStore, n, logger)
	sched, err := newScheduler(cfg, agg, logger)
	if err != nil {
		return err
	}
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		return err
	}

	logger.Info("goodbye")
	return nil
}

// newScheduler builds the cron scheduler for the configured query. --now or
// run_on_start triggers an immediate first cycle.
func newScheduler(cfg *config.Config, runner scheduler.Runner, logger *slog.Logger) (*scheduler.Scheduler, error) {
	q := model.Query{
		Companies: cfg.Companies,
		Role:      cfg.Search.Role,
		Location:  cfg.Search.Location,
	}
	return scheduler.NewScheduler(runner, cfg.Schedule, q, runOnStart || cfg.RunOnStart, logger)
}
