package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sanathsadiga/jobautomate/internal/server"
)

var (
	serveAddr       string
	serveNoSchedule bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run the scheduler",
	Long:  "Serves POST /jobs/search, GET /jobs and GET /health, and runs the configured schedule alongside; blocks until SIGINT/SIGTERM.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&serveNoSchedule, "no-schedule", false, "serve the API without the scheduler")
	serveCmd.Flags().BoolVar(&runOnStart, "now", false, "run one scheduled cycle immediately")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap(os.Stdout)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

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
	srv := server.New(cfg.Server.Addr, cfg.Server.CORSOrigins, agg, jobStore, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	switch err := cfg.ValidateSchedule(); {
	case serveNoSchedule:
		logger.Info("scheduler disabled")
	case err != nil:
		logger.Warn("scheduler not started", "reason", err)
	default:
		sched, err := newScheduler(cfg, agg, logger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return sched.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("serve error", "error", err)
		return err
	}
	logger.Info("goodbye")
	return nil
}
