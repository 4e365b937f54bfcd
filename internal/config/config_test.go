package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
candidate:
  years: 0
search:
  role: " developer "
  location: Bangalore
companies: [zoho, google, " ", microsoft]
schedule: "@every 6h"
run_on_start: true
pipeline:
  heavy_timeout: 90s
sources:
  http_timeout: 10s
  microsoft:
    deep: false
    max_detail: 5
  browser:
    retries: 2
    backoff: 500ms
    chrome_path: /usr/bin/chromium
  greenhouse:
    - name: Acme
      board_token: acme
rate_limit:
  min_delay: 1s
  overrides:
    Google: 3s
retry:
  max_retries: 0
  base_delay: 1s
database:
  driver: Postgres
  dsn: postgres://localhost/jobs
server:
  addr: ":9090"
  cors_origins: ["http://localhost:5173"]
notification:
  type: redis
  redis_url: redis://localhost:6379/0
  channel: jobs
logging:
  level: DEBUG
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CandidateYears != 0 {
		t.Errorf("CandidateYears = %d, want 0", cfg.CandidateYears)
	}
	if cfg.Search.Role != "developer" || cfg.Search.Location != "Bangalore" {
		t.Errorf("Search = %+v", cfg.Search)
	}
	if strings.Join(cfg.Companies, ",") != "zoho,google,microsoft" {
		t.Errorf("Companies = %v", cfg.Companies)
	}
	if cfg.Schedule != "@every 6h" || !cfg.RunOnStart {
		t.Errorf("Schedule = %q, RunOnStart = %v", cfg.Schedule, cfg.RunOnStart)
	}
	if cfg.Pipeline.HeavyTimeout != 90*time.Second {
		t.Errorf("HeavyTimeout = %v, want 90s", cfg.Pipeline.HeavyTimeout)
	}
	if cfg.Sources.HTTPTimeout != 10*time.Second {
		t.Errorf("HTTPTimeout = %v, want 10s", cfg.Sources.HTTPTimeout)
	}
	if cfg.Sources.Microsoft.Deep || cfg.Sources.Microsoft.MaxDetail != 5 {
		t.Errorf("Microsoft = %+v", cfg.Sources.Microsoft)
	}
	if cfg.Sources.Browser.Retries != 2 || cfg.Sources.Browser.Backoff != 500*time.Millisecond || cfg.Sources.Browser.ChromePath != "/usr/bin/chromium" {
		t.Errorf("Browser = %+v", cfg.Sources.Browser)
	}
	if len(cfg.Sources.Greenhouse) != 1 || cfg.Sources.Greenhouse[0].BoardToken != "acme" {
		t.Errorf("Greenhouse = %+v", cfg.Sources.Greenhouse)
	}
	if cfg.RateLimit.Overrides["google"] != 3*time.Second || cfg.RateLimit.MinDelay != time.Second {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.Retry.MaxRetries != 0 || cfg.Retry.BaseDelay != time.Second {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.DSN != "postgres://localhost/jobs" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Server.Addr != ":9090" || len(cfg.Server.CORSOrigins) != 1 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Notification.Type != "redis" || cfg.Notification.Channel != "jobs" {
		t.Errorf("Notification = %+v", cfg.Notification)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if err := cfg.ValidateSchedule(); err != nil {
		t.Errorf("ValidateSchedule: %v", err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.CandidateYears != 2 {
		t.Errorf("CandidateYears = %d, want 2", cfg.CandidateYears)
	}
	if cfg.Schedule != "0 0 * * *" {
		t.Errorf("Schedule = %q", cfg.Schedule)
	}
	if cfg.Pipeline.HeavyTimeout != 5*time.Minute {
		t.Errorf("HeavyTimeout = %v, want 5m", cfg.Pipeline.HeavyTimeout)
	}
	if cfg.Sources.HTTPTimeout != 25*time.Second {
		t.Errorf("HTTPTimeout = %v, want 25s", cfg.Sources.HTTPTimeout)
	}
	if !cfg.Sources.Microsoft.Deep || cfg.Sources.Microsoft.MaxDetail != 30 {
		t.Errorf("Microsoft = %+v", cfg.Sources.Microsoft)
	}
	if cfg.Sources.Browser.Retries != 3 || cfg.Sources.Browser.Backoff != 2*time.Second {
		t.Errorf("Browser = %+v", cfg.Sources.Browser)
	}
	if cfg.Retry.MaxRetries != 2 || cfg.Retry.BaseDelay != 5*time.Second {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "jobs.db" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Notification.Type != "log" {
		t.Errorf("Notification.Type = %q", cfg.Notification.Type)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if err := cfg.ValidateSchedule(); err == nil {
		t.Error("ValidateSchedule: expected error without companies")
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("JOBAUTOMATE_TEST_WEBHOOK", "https://hooks.slack.com/services/T/B/X")
	path := writeConfig(t, `
notification:
  type: slack
  webhook_url: ${JOBAUTOMATE_TEST_WEBHOOK}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notification.WebhookURL != "https://hooks.slack.com/services/T/B/X" {
		t.Errorf("WebhookURL = %q", cfg.Notification.WebhookURL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "companies: [broken")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_ValidationErrorsNameTheKey(t *testing.T) {
	tests := []struct {
		name    string
		content string
		key     string
	}{
		{"bad duration", "pipeline:\n  heavy_timeout: soon\n", "pipeline.heavy_timeout"},
		{"zero heavy timeout", "pipeline:\n  heavy_timeout: 0s\n", "pipeline.heavy_timeout"},
		{"negative years", "candidate:\n  years: -1\n", "candidate.years"},
		{"years out of range", "candidate:\n  years: 61\n", "candidate.years"},
		{"bad schedule", "schedule: every day\n", "schedule"},
		{"bad driver", "database:\n  driver: mysql\n", "database.driver"},
		{"slack without webhook", "notification:\n  type: slack\n", "notification.webhook_url"},
		{"slack bad webhook", "notification:\n  type: slack\n  webhook_url: https://example.com/hook\n", "notification.webhook_url"},
		{"redis without url", "notification:\n  type: redis\n", "notification.redis_url"},
		{"amqp without url", "notification:\n  type: amqp\n", "notification.amqp_url"},
		{"unknown notifier", "notification:\n  type: email\n", "notification.type"},
		{"greenhouse without token", "sources:\n  greenhouse:\n    - name: acme\n", "sources.greenhouse[0]"},
		{"zero browser retries", "sources:\n  browser:\n    retries: 0\n", "sources.browser.retries"},
		{"bad override", "rate_limit:\n  overrides:\n    google: fast\n", "rate_limit.overrides"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"bad format", "logging:\n  format: xml\n", "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			if err == nil {
				t.Fatal("Parse: expected validation error")
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error %q does not name %s", err, tt.key)
			}
		})
	}
}

func TestValidateSchedule_RequiresRoleOrLocation(t *testing.T) {
	cfg, err := Parse([]byte("companies: [zoho]\n"))
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.ValidateSchedule(); err == nil {
		t.Fatal("ValidateSchedule: expected error without role or location")
	}

	cfg.Search.Location = "India"
	if err := cfg.ValidateSchedule(); err != nil {
		t.Errorf("ValidateSchedule: %v", err)
	}
}
