package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/sanathsadiga/jobautomate/internal/model"
)

func TestWait_SameSource_EnforcesMinDelay(t *testing.T) {
	limiter := NewSourceRateLimiter(100*time.Millisecond, nil)
	ctx := context.Background()

	// First call should return immediately.
	if err := limiter.Wait(ctx, "Google"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "Google"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Should have waited at least ~100ms (allow 80ms for timer jitter).
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentSources_NoCrossBlocking(t *testing.T) {
	limiter := NewSourceRateLimiter(200*time.Millisecond, nil)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "Google"); err != nil {
		t.Fatalf("google wait: %v", err)
	}

	// Immediately call for zoho; should NOT block.
	start := time.Now()
	if err := limiter.Wait(ctx, "Zoho"); err != nil {
		t.Fatalf("zoho wait: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed > 50*time.Millisecond {
		t.Errorf("expected zoho wait to be near-instant, got %v", elapsed)
	}
}

func TestWait_OverrideTakesPrecedence(t *testing.T) {
	limiter := NewSourceRateLimiter(5*time.Second, map[string]time.Duration{"Zoho": 0})
	ctx := context.Background()

	if err := limiter.Wait(ctx, "Zoho"); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	start := time.Now()
	if err := limiter.Wait(ctx, "Zoho"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected zero-delay override, waited %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewSourceRateLimiter(5*time.Second, nil)
	ctx := context.Background()

	// First call to seed the last-call time.
	if err := limiter.Wait(ctx, "Google"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := limiter.Wait(ctx, "Google")
	if err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

type recordingSource struct {
	called bool
}

func (s *recordingSource) Name() string       { return "Google" }
func (s *recordingSource) Class() model.Class { return model.ClassLight }

func (s *recordingSource) Fetch(_ context.Context, _, _ string) ([]model.Result, error) {
	s.called = true
	return nil, nil
}

func TestRateLimitedSource_WaitsBeforeDelegating(t *testing.T) {
	limiter := NewSourceRateLimiter(100*time.Millisecond, nil)
	inner := &recordingSource{}
	source := NewRateLimitedSource(inner, limiter)
	ctx := context.Background()

	if _, err := source.Fetch(ctx, "developer", ""); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if !inner.called {
		t.Fatal("inner source was not called on first fetch")
	}

	inner.called = false

	start := time.Now()
	if _, err := source.Fetch(ctx, "developer", ""); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	elapsed := time.Since(start)

	if !inner.called {
		t.Fatal("inner source was not called on second fetch")
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait on second fetch, got %v", elapsed)
	}
}
