package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for jobautomate.
type Config struct {
	CandidateYears int
	Search         SearchConfig
	Companies      []string // company set for scheduled runs
	Schedule       string   // standard cron spec or descriptor
	RunOnStart     bool
	Pipeline       PipelineConfig
	Sources        SourcesConfig
	RateLimit      RateLimitConfig
	Retry          RetryConfig
	Database       DatabaseConfig
	Server         ServerConfig
	Notification   NotificationConfig
	Logging        LoggingConfig
}

// SearchConfig is the role and location used by scheduled runs.
type SearchConfig struct {
	Role     string `yaml:"role"`
	Location string `yaml:"location"`
}

// PipelineConfig controls the aggregator.
type PipelineConfig struct {
	HeavyTimeout time.Duration // per heavy-source deadline
}

// SourcesConfig configures the individual source adapters.
type SourcesConfig struct {
	HTTPTimeout time.Duration
	Microsoft   MicrosoftConfig
	Browser     BrowserConfig
	Greenhouse  []GreenhouseBoard
}

// MicrosoftConfig controls detail enrichment for Microsoft postings.
type MicrosoftConfig struct {
	Deep      bool
	MaxDetail int
}

// BrowserConfig controls headless browser session startup.
type BrowserConfig struct {
	Retries    int
	Backoff    time.Duration
	ChromePath string
}

// GreenhouseBoard registers one public Greenhouse board as a source.
type GreenhouseBoard struct {
	Name       string `yaml:"name"`
	BoardToken string `yaml:"board_token"`
}

// RateLimitConfig controls per-source rate limiting.
type RateLimitConfig struct {
	MinDelay  time.Duration            // minimum gap between requests to the same source
	Overrides map[string]time.Duration // per-source overrides, keyed by lower-case source name
}

// RetryConfig controls retries of light sources on transient failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log", "slack", "redis" or "amqp"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
	RedisURL   string `yaml:"redis_url"`   // required if type is "redis"
	Channel    string `yaml:"channel"`
	AMQPURL    string `yaml:"amqp_url"` // required if type is "amqp"
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

// LoggingConfig selects the log level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

const (
	defaultCandidateYears = 2
	defaultSchedule       = "0 0 * * *"
	defaultHeavyTimeout   = 5 * time.Minute
	defaultHTTPTimeout    = 25 * time.Second
	defaultMaxDetail      = 30
	defaultBrowserRetries = 3
	defaultBrowserBackoff = 2 * time.Second
	defaultMaxRetries     = 2
	defaultRetryDelay     = 5 * time.Second
	defaultDriver         = "sqlite"
	defaultDSN            = "jobs.db"
	defaultAddr           = ":8080"
	maxCandidateYears     = 60
	slackWebhookPrefix    = "https://hooks.slack.com/"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Candidate    rawCandidateConfig `yaml:"candidate"`
	Search       SearchConfig       `yaml:"search"`
	Companies    []string           `yaml:"companies"`
	Schedule     string             `yaml:"schedule"`
	RunOnStart   bool               `yaml:"run_on_start"`
	Pipeline     rawPipelineConfig  `yaml:"pipeline"`
	Sources      rawSourcesConfig   `yaml:"sources"`
	RateLimit    rawRateLimitConfig `yaml:"rate_limit"`
	Retry        rawRetryConfig     `yaml:"retry"`
	Database     DatabaseConfig     `yaml:"database"`
	Server       ServerConfig       `yaml:"server"`
	Notification NotificationConfig `yaml:"notification"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type rawCandidateConfig struct {
	Years *int `yaml:"years"`
}

type rawPipelineConfig struct {
	HeavyTimeout string `yaml:"heavy_timeout"`
}

type rawSourcesConfig struct {
	HTTPTimeout string             `yaml:"http_timeout"`
	Microsoft   rawMicrosoftConfig `yaml:"microsoft"`
	Browser     rawBrowserConfig   `yaml:"browser"`
	Greenhouse  []GreenhouseBoard  `yaml:"greenhouse"`
}

type rawMicrosoftConfig struct {
	Deep      *bool `yaml:"deep"`
	MaxDetail *int  `yaml:"max_detail"`
}

type rawBrowserConfig struct {
	Retries    *int   `yaml:"retries"`
	Backoff    string `yaml:"backoff"`
	ChromePath string `yaml:"chrome_path"`
}

type rawRateLimitConfig struct {
	MinDelay  string            `yaml:"min_delay"`
	Overrides map[string]string `yaml:"overrides"`
}

type rawRetryConfig struct {
	MaxRetries *int   `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(fmt.Sprintf("config: defaults are invalid: %v", err))
	}
	return cfg
}

// Parse expands environment variables in data, decodes it, applies defaults
// and validates the result.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	heavyTimeout, err := parseDuration("pipeline.heavy_timeout", raw.Pipeline.HeavyTimeout, defaultHeavyTimeout)
	if err != nil {
		return nil, err
	}
	httpTimeout, err := parseDuration("sources.http_timeout", raw.Sources.HTTPTimeout, defaultHTTPTimeout)
	if err != nil {
		return nil, err
	}
	browserBackoff, err := parseDuration("sources.browser.backoff", raw.Sources.Browser.Backoff, defaultBrowserBackoff)
	if err != nil {
		return nil, err
	}
	minDelay, err := parseDuration("rate_limit.min_delay", raw.RateLimit.MinDelay, 0)
	if err != nil {
		return nil, err
	}
	retryDelay, err := parseDuration("retry.base_delay", raw.Retry.BaseDelay, defaultRetryDelay)
	if err != nil {
		return nil, err
	}

	overrides := make(map[string]time.Duration)
	for source, v := range raw.RateLimit.Overrides {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse rate_limit.overrides[%q]: %w", source, err)
		}
		overrides[strings.ToLower(source)] = d
	}

	var companies []string
	for _, c := range raw.Companies {
		if c = strings.TrimSpace(c); c != "" {
			companies = append(companies, c)
		}
	}

	cfg := &Config{
		CandidateYears: intOr(raw.Candidate.Years, defaultCandidateYears),
		Search: SearchConfig{
			Role:     strings.TrimSpace(raw.Search.Role),
			Location: strings.TrimSpace(raw.Search.Location),
		},
		Companies:  companies,
		Schedule:   stringOr(raw.Schedule, defaultSchedule),
		RunOnStart: raw.RunOnStart,
		Pipeline:   PipelineConfig{HeavyTimeout: heavyTimeout},
		Sources: SourcesConfig{
			HTTPTimeout: httpTimeout,
			Microsoft: MicrosoftConfig{
				Deep:      raw.Sources.Microsoft.Deep == nil || *raw.Sources.Microsoft.Deep,
				MaxDetail: intOr(raw.Sources.Microsoft.MaxDetail, defaultMaxDetail),
			},
			Browser: BrowserConfig{
				Retries:    intOr(raw.Sources.Browser.Retries, defaultBrowserRetries),
				Backoff:    browserBackoff,
				ChromePath: raw.Sources.Browser.ChromePath,
			},
			Greenhouse: raw.Sources.Greenhouse,
		},
		RateLimit: RateLimitConfig{
			MinDelay:  minDelay,
			Overrides: overrides,
		},
		Retry: RetryConfig{
			MaxRetries: intOr(raw.Retry.MaxRetries, defaultMaxRetries),
			BaseDelay:  retryDelay,
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(stringOr(raw.Database.Driver, defaultDriver)),
			DSN:    stringOr(raw.Database.DSN, defaultDSN),
		},
		Server: ServerConfig{
			Addr:        stringOr(raw.Server.Addr, defaultAddr),
			CORSOrigins: raw.Server.CORSOrigins,
		},
		Notification: raw.Notification,
		Logging: LoggingConfig{
			Level:  strings.ToLower(stringOr(raw.Logging.Level, "info")),
			Format: strings.ToLower(stringOr(raw.Logging.Format, "console")),
		},
	}
	cfg.Notification.Type = strings.ToLower(stringOr(cfg.Notification.Type, "log"))

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateSchedule checks the fields needed for scheduled runs: a company set
// and a role or location to search for.
func (c *Config) ValidateSchedule() error {
	if len(c.Companies) == 0 {
		return errors.New("companies must list at least one company for scheduled runs")
	}
	if c.Search.Role == "" && c.Search.Location == "" {
		return errors.New("search.role or search.location is required for scheduled runs")
	}
	return nil
}

func validate(cfg *Config) error {
	if cfg.CandidateYears < 0 || cfg.CandidateYears > maxCandidateYears {
		return fmt.Errorf("candidate.years must be between 0 and %d, got %d", maxCandidateYears, cfg.CandidateYears)
	}

	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return fmt.Errorf("schedule %q is not a valid cron spec: %w", cfg.Schedule, err)
	}

	if cfg.Pipeline.HeavyTimeout <= 0 {
		return fmt.Errorf("pipeline.heavy_timeout must be positive, got %v", cfg.Pipeline.HeavyTimeout)
	}
	if cfg.Sources.HTTPTimeout <= 0 {
		return fmt.Errorf("sources.http_timeout must be positive, got %v", cfg.Sources.HTTPTimeout)
	}
	if cfg.Sources.Microsoft.MaxDetail < 0 {
		return fmt.Errorf("sources.microsoft.max_detail must not be negative, got %d", cfg.Sources.Microsoft.MaxDetail)
	}
	if cfg.Sources.Browser.Retries < 1 {
		return fmt.Errorf("sources.browser.retries must be at least 1, got %d", cfg.Sources.Browser.Retries)
	}
	for i, b := range cfg.Sources.Greenhouse {
		if strings.TrimSpace(b.Name) == "" || strings.TrimSpace(b.BoardToken) == "" {
			return fmt.Errorf("sources.greenhouse[%d] requires name and board_token", i)
		}
	}

	if cfg.RateLimit.MinDelay < 0 {
		return fmt.Errorf("rate_limit.min_delay must not be negative, got %v", cfg.RateLimit.MinDelay)
	}
	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", cfg.Retry.MaxRetries)
	}

	switch cfg.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be \"sqlite\" or \"postgres\", got %q", cfg.Database.Driver)
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, slackWebhookPrefix) {
			return fmt.Errorf("notification.webhook_url must start with %s", slackWebhookPrefix)
		}
	case "redis":
		if cfg.Notification.RedisURL == "" {
			return fmt.Errorf("notification.redis_url is required when type is \"redis\"")
		}
	case "amqp":
		if cfg.Notification.AMQPURL == "" {
			return fmt.Errorf("notification.amqp_url is required when type is \"amqp\"")
		}
	default:
		return fmt.Errorf("notification.type must be one of log, slack, redis, amqp; got %q", cfg.Notification.Type)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", cfg.Logging.Format)
	}

	return nil
}

func parseDuration(key, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", key, value, err)
	}
	return d, nil
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func stringOr(v, fallback string) string {
	if v = strings.TrimSpace(v); v == "" {
		return fallback
	}
	return v
}
