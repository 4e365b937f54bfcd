package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sanathsadiga/jobautomate/internal/model"
	"github.com/sanathsadiga/jobautomate/internal/pipeline"
)

// --- Mock implementations ---

type CountingRunner struct {
	calls atomic.Int32
	delay time.Duration
	last  atomic.Value // model.Query
}

func (r *CountingRunner) Run(ctx context.Context, q model.Query) pipeline.Report {
	r.calls.Add(1)
	r.last.Store(q)
	if r.delay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(r.delay):
		}
	}
	return pipeline.Report{RunID: "run"}
}

type PanickingRunner struct {
	calls atomic.Int32
}

func (r *PanickingRunner) Run(context.Context, model.Query) pipeline.Report {
	r.calls.Add(1)
	panic("source exploded")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testQuery = model.Query{Companies: []string{"Zoho", "Google"}, Role: "software engineer", Location: "India"}

func startScheduler(t *testing.T, s *Scheduler) (cancel func() error) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()
	return func() error {
		stop()
		select {
		case err := <-done:
			return err
		case <-time.After(3 * time.Second):
			t.Fatal("scheduler did not return within 3s after cancel")
			return nil
		}
	}
}

// --- Tests ---

func TestNewScheduler_InvalidSpec(t *testing.T) {
	if _, err := NewScheduler(&CountingRunner{}, "every day", testQuery, false, discardLogger()); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestRun_CancelReturnsPromptly(t *testing.T) {
	s, err := NewScheduler(&CountingRunner{}, "0 0 * * *", testQuery, false, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	stop := startScheduler(t, s)
	time.Sleep(50 * time.Millisecond)

	if err := stop(); err != nil {
		t.Fatalf("expected nil error on cancel, got: %v", err)
	}
}

func TestRun_RunOnStartUsesConfiguredQuery(t *testing.T) {
	runner := &CountingRunner{}
	s, err := NewScheduler(runner, "0 0 * * *", testQuery, true, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	stop := startScheduler(t, s)
	time.Sleep(100 * time.Millisecond)
	stop()

	if got := runner.calls.Load(); got != 1 {
		t.Fatalf("runner calls = %d, want 1", got)
	}
	q := runner.last.Load().(model.Query)
	if q.Role != "software engineer" || q.Location != "India" || len(q.Companies) != 2 {
		t.Errorf("runner got query %+v", q)
	}
}

func TestRun_TicksOnSchedule(t *testing.T) {
	runner := &CountingRunner{}
	s, err := NewScheduler(runner, "@every 1s", testQuery, false, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	stop := startScheduler(t, s)
	time.Sleep(2200 * time.Millisecond)
	stop()

	if got := runner.calls.Load(); got < 2 {
		t.Errorf("runner calls = %d, want >= 2", got)
	}
}

func TestRun_PanicDoesNotStopSchedule(t *testing.T) {
	runner := &PanickingRunner{}
	s, err := NewScheduler(runner, "@every 1s", testQuery, true, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	stop := startScheduler(t, s)
	time.Sleep(1200 * time.Millisecond)
	stop()

	if got := runner.calls.Load(); got < 2 {
		t.Errorf("runner calls = %d, want >= 2 (immediate + tick)", got)
	}
}

func TestRunOnce_SkipsWhileRunning(t *testing.T) {
	runner := &CountingRunner{delay: 200 * time.Millisecond}
	s, err := NewScheduler(runner, "0 0 * * *", testQuery, false, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	go s.runOnce(ctx)
	time.Sleep(50 * time.Millisecond)
	s.runOnce(ctx)

	time.Sleep(250 * time.Millisecond)
	if got := runner.calls.Load(); got != 1 {
		t.Errorf("runner calls = %d, want 1 (overlapping tick skipped)", got)
	}
}
