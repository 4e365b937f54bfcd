package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sanathsadiga/jobautomate/internal/model"
)

// SourceRateLimiter enforces a minimum delay between requests to the same source.
// The scheduler and the HTTP boundary share one instance.
type SourceRateLimiter struct {
	mu       sync.Mutex
	lastCall map[string]time.Time // key: source name
	minDelay time.Duration
	override map[string]time.Duration
}

// NewSourceRateLimiter creates a rate limiter that enforces minDelay between
// consecutive requests to the same source. overrides may be nil; their keys
// match source names case-insensitively.
func NewSourceRateLimiter(minDelay time.Duration, overrides map[string]time.Duration) *SourceRateLimiter {
	override := make(map[string]time.Duration, len(overrides))
	for k, d := range overrides {
		override[strings.ToLower(k)] = d
	}
	return &SourceRateLimiter{
		lastCall: make(map[string]time.Time),
		minDelay: minDelay,
		override: override,
	}
}

func (r *SourceRateLimiter) delayFor(key string) time.Duration {
	if d, ok := r.override[strings.ToLower(key)]; ok {
		return d
	}
	return r.minDelay
}

// Wait blocks until enough time has passed since the last request to the given source.
// Returns an error if the context is cancelled while waiting.
func (r *SourceRateLimiter) Wait(ctx context.Context, key string) error {
	r.mu.Lock()
	last, ok := r.lastCall[key]
	now := time.Now()
	minDelay := r.delayFor(key)

	if !ok {
		r.lastCall[key] = now
		r.mu.Unlock()
		return nil
	}

	elapsed := now.Sub(last)
	if elapsed >= minDelay {
		r.lastCall[key] = now
		r.mu.Unlock()
		return nil
	}

	remaining := minDelay - elapsed
	// Reserve the slot so concurrent callers queue behind this one.
	r.lastCall[key] = now.Add(remaining)
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", key, ctx.Err())
	case <-time.After(remaining):
	}

	return nil
}

// RateLimitedSource is a decorator that enforces source-level rate limiting
// before delegating to the wrapped Source.
type RateLimitedSource struct {
	inner   model.Source
	limiter *SourceRateLimiter
}

var _ model.Source = (*RateLimitedSource)(nil)

// NewRateLimitedSource wraps a Source with rate limiting keyed on its name.
func NewRateLimitedSource(inner model.Source, limiter *SourceRateLimiter) *RateLimitedSource {
	return &RateLimitedSource{
		inner:   inner,
		limiter: limiter,
	}
}

func (s *RateLimitedSource) Name() string       { return s.inner.Name() }
func (s *RateLimitedSource) Class() model.Class { return s.inner.Class() }

// Fetch waits for the rate limiter to allow a request, then delegates to
// the wrapped source.
func (s *RateLimitedSource) Fetch(ctx context.Context, role, location string) ([]model.Result, error) {
	if err := s.limiter.Wait(ctx, s.inner.Name()); err != nil {
		return nil, err
	}
	return s.inner.Fetch(ctx, role, location)
}
