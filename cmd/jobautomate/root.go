package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sanathsadiga/jobautomate/internal/adapter"
	"github.com/sanathsadiga/jobautomate/internal/browser"
	"github.com/sanathsadiga/jobautomate/internal/config"
	"github.com/sanathsadiga/jobautomate/internal/logging"
	"github.com/sanathsadiga/jobautomate/internal/model"
	"github.com/sanathsadiga/jobautomate/internal/notifier"
	"github.com/sanathsadiga/jobautomate/internal/pipeline"
	"github.com/sanathsadiga/jobautomate/internal/ratelimit"
	"github.com/sanathsadiga/jobautomate/internal/retry"
	"github.com/sanathsadiga/jobautomate/internal/store"
)

const defaultConfigPath = "config.yaml"

var rootCmd = &cobra.Command{
	Use:   "jobautomate",
	Short: "Aggregate job postings across company career sites",
	Long:  "jobautomate fetches postings from company career sites, scores them against your experience, stores them and alerts you to new matches.",
	// Default to `start` so that `jobautomate` with no args runs the scheduler.
	RunE:         runStart,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initEnv)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file (default: JOBAUTOMATE_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "enable debug logging")

	mustBind(viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")))
	mustBind(viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")))
	mustBind(viper.BindEnv("config", "JOBAUTOMATE_CONFIG"))
	mustBind(viper.BindEnv("debug", "JOBAUTOMATE_DEBUG"))
}

func mustBind(err error) {
	if err != nil {
		panic(fmt.Sprintf("binding flag: %v", err))
	}
}

// initEnv loads a .env file from the working directory when present, so that
// ${VAR} references in the config and JOBAUTOMATE_* variables can live there.
func initEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}
}

// loadConfig resolves the config path and parses it.
// Priority: --config flag > JOBAUTOMATE_CONFIG env var > "./config.yaml".
// A missing ./config.yaml falls back to defaults; an explicit path must exist.
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
		path = defaultConfigPath
	}
	return config.Load(path)
}

// bootstrap loads the config and builds a logger writing to w.
func bootstrap(w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := setupLogger(cfg, w)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func setupLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	return logging.New(w, logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Debug:  viper.GetBool("debug"),
	})
}

// setupNotifier builds the configured notifier. The returned close func is
// never nil.
func setupNotifier(ctx context.Context, cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (model.Notifier, func(), error) {
	nop := func() {}
	n := cfg.Notification
	switch n.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(n.WebhookURL, httpClient, logger), nop, nil
	case "redis":
		rn, err := notifier.NewRedisNotifier(ctx, n.RedisURL, n.Channel, logger)
		if err != nil {
			return nil, nop, err
		}
		logger.Info("using redis notifier", "channel", n.Channel)
		return rn, func() { _ = rn.Close() }, nil
	case "amqp":
		an, err := notifier.NewAMQPNotifier(n.AMQPURL, n.Exchange, n.RoutingKey, logger)
		if err != nil {
			return nil, nop, err
		}
		logger.Info("using amqp notifier", "exchange", n.Exchange, "routing_key", n.RoutingKey)
		return an, func() { _ = an.Close() }, nil
	default:
		return notifier.NewLogNotifier(logger), nop, nil
	}
}

// openStore opens the configured database, or a NopStore when dryRun is set.
func openStore(cfg *config.Config, dryRun bool, logger *slog.Logger) (storeCloser, error) {
	if dryRun {
		logger.Info("dry-run mode enabled, nothing will be stored")
		return store.NewNopStore(), nil
	}
	s, err := store.Open(cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}

// storeCloser is the store surface the commands use.
type storeCloser interface {
	model.JobStore
	Ping(ctx context.Context) error
}

// buildRegistry registers every known source. Light sources are wrapped with
// retry and a shared per-source rate limiter; heavy sources share one browser
// pool so that only one session starts at a time.
func buildRegistry(cfg *config.Config, logger *slog.Logger) *adapter.Registry {
	httpClient := &http.Client{Timeout: cfg.Sources.HTTPTimeout}
	limiter := ratelimit.NewSourceRateLimiter(cfg.RateLimit.MinDelay, cfg.RateLimit.Overrides)

	light := func(s model.Source) model.Source {
		s = retry.NewRetrySource(s, cfg.Retry.MaxRetries, cfg.Retry.BaseDelay, logger)
		return ratelimit.NewRateLimitedSource(s, limiter)
	}

	reg := adapter.NewRegistry()
	reg.Register("zoho", light(adapter.NewZohoAdapter(httpClient, logger)))
	reg.Register("google", light(adapter.NewGoogleAdapter(httpClient, logger)))

	pool := browser.NewPool(
		browser.NewChromeLauncher(cfg.Sources.Browser.ChromePath, logger),
		cfg.Sources.Browser.Retries,
		cfg.Sources.Browser.Backoff,
		logger,
	)
	reg.Register("microsoft", adapter.NewMicrosoftAdapter(pool, httpClient, cfg.Sources.Microsoft.Deep, cfg.Sources.Microsoft.MaxDetail, logger))
	reg.Register("amazon", adapter.NewAmazonAdapter(pool, logger))

	for _, b := range cfg.Sources.Greenhouse {
		reg.Register(b.Name, light(adapter.NewGreenhouseAdapter(b.BoardToken, b.Name, httpClient, logger)))
	}
	return reg
}

func newAggregator(cfg *config.Config, reg *adapter.Registry, jobStore model.JobStore, n model.Notifier, logger *slog.Logger) *pipeline.Aggregator {
	return pipeline.NewAggregator(reg, jobStore, n, pipeline.Options{
		CandidateYears: cfg.CandidateYears,
		HeavyTimeout:   cfg.Pipeline.HeavyTimeout,
	}, logger)
}
