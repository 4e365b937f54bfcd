// Package scheduler triggers aggregation runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sanathsadiga/jobautomate/internal/model"
	"github.com/sanathsadiga/jobautomate/internal/pipeline"
)

// Runner runs one aggregation.
type Runner interface {
	Run(ctx context.Context, q model.Query) pipeline.Report
}

// Scheduler wraps robfig/cron and runs the configured query on every tick.
// Overlapping ticks are skipped; a failing or panicking run is logged and the
// schedule continues.
type Scheduler struct {
	runner     Runner
	query      model.Query
	spec       string // cron spec, e.g. "0 0 * * *" or "@every 6h"
	runOnStart bool
	logger     *slog.Logger

	mu sync.Mutex // held while a run is in progress
}

// NewScheduler validates spec and returns a scheduler for query.
func NewScheduler(runner Runner, spec string, query model.Query, runOnStart bool, logger *slog.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &Scheduler{
		runner:     runner,
		query:      query,
		spec:       spec,
		runOnStart: runOnStart,
		logger:     logger,
	}, nil
}

// Run starts the cron loop. When runOnStart is set one cycle runs immediately.
// It returns nil when ctx is cancelled (graceful shutdown), after any
// in-flight run has finished.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithLogger(cronLogger{s.logger}))
	if _, err := c.AddFunc(s.spec, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.logger.Info("starting scheduler",
		"schedule", s.spec,
		"companies", len(s.query.Companies),
		"role", s.query.Role,
		"location", s.query.Location,
	)
	c.Start()

	if s.runOnStart {
		go s.runOnce(ctx)
	}

	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	<-c.Stop().Done()

	// Wait for an in-flight immediate run.
	s.mu.Lock()
	s.mu.Unlock()
	return nil
}

// runOnce runs one cycle unless another is still in progress.
func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !s.mu.TryLock() {
		s.logger.Warn("previous run still in progress, skipping tick")
		return
	}
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled run panicked", "panic", r)
		}
	}()

	rep := s.runner.Run(ctx, s.query)
	s.logger.Info("scheduled run finished",
		"run_id", rep.RunID,
		"results", len(rep.Results),
		"stored", rep.Stored,
		"inserted", rep.Inserted,
		"duration", rep.Duration.Round(time.Millisecond).String(),
	)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
