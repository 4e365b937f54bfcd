// Package browser manages rendered-page sessions for sources whose listings
// only appear after client-side rendering.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sanathsadiga/jobautomate/internal/retry"
)

// ErrWaitTimeout is returned by Render when the wait selector never appeared.
var ErrWaitTimeout = errors.New("timed out waiting for selector")

// RenderOptions controls how a page is loaded before its HTML is captured.
type RenderOptions struct {
	WaitSelector string        // CSS selector that must be present; empty skips the wait
	WaitTimeout  time.Duration // bound on the wait
	WaitOptional bool          // on timeout, capture whatever rendered instead of failing
	Scrolls      int           // number of scroll steps to trigger lazy loading
	ScrollPause  time.Duration // pause after each scroll step
}

// Session is a single rendered-page browser session. Close must be called on
// every exit path.
type Session interface {
	Render(ctx context.Context, url string, opts RenderOptions) (string, error)
	Close() error
}

// Launcher starts new sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// Provider hands out ready sessions to heavy sources.
type Provider interface {
	Acquire(ctx context.Context) (Session, error)
}

// Pool serializes session creation behind a single startup permit and retries
// failed launches with a fixed backoff. The permit is held only while a
// session is being created, never for its lifetime.
type Pool struct {
	launcher Launcher
	permit   *semaphore.Weighted
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

var _ Provider = (*Pool)(nil)

// NewPool creates a pool around launcher. attempts defaults to 3 and backoff
// to 2s when zero.
func NewPool(launcher Launcher, attempts int, backoff time.Duration, logger *slog.Logger) *Pool {
	if attempts <= 0 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &Pool{
		launcher: launcher,
		permit:   semaphore.NewWeighted(1),
		attempts: attempts,
		backoff:  backoff,
		logger:   logger,
	}
}

// Acquire takes the startup permit, launches a session (retrying on failure),
// and releases the permit before returning.
func (p *Pool) Acquire(ctx context.Context) (Session, error) {
	if err := p.permit.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for session startup permit: %w", err)
	}
	defer p.permit.Release(1)

	var sess Session
	err := retry.Fixed(ctx, p.attempts, p.backoff, func(attempt int) error {
		p.logger.Debug("launching browser session", "attempt", attempt, "attempts", p.attempts)
		s, err := p.launcher.Launch(ctx)
		if err != nil {
			p.logger.Warn("browser launch failed", "attempt", attempt, "attempts", p.attempts, "error", err)
			return err
		}
		sess = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("launching browser session: %w", err)
	}
	return sess, nil
}
