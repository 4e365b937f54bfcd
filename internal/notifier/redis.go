package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanathsadiga/jobautomate/internal/model"
)

// DefaultRedisChannel is used when no channel is configured.
const DefaultRedisChannel = "jobautomate:jobs"

// Ensure RedisNotifier implements model.Notifier.
var _ model.Notifier = (*RedisNotifier)(nil)

// redisPublisher is the subset of *redis.Client the notifier uses.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisNotifier publishes one JSON event per posting on a Redis pub/sub channel.
type RedisNotifier struct {
	client  redisPublisher
	closer  func() error
	channel string
	logger  *slog.Logger
}

// NewRedisNotifier parses redisURL, verifies connectivity and returns a
// notifier publishing on channel.
func NewRedisNotifier(ctx context.Context, redisURL, channel string, logger *slog.Logger) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	n := newRedisNotifier(client, channel, logger)
	n.closer = client.Close
	return n, nil
}

func newRedisNotifier(client redisPublisher, channel string, logger *slog.Logger) *RedisNotifier {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

// Notify publishes each posting. Returns an error only if ALL publishes fail.
func (r *RedisNotifier) Notify(ctx context.Context, postings []model.Posting) error {
	if len(postings) == 0 {
		return nil
	}

	failures := 0
	for _, p := range postings {
		body, err := json.Marshal(newJobEvent(p, time.Now().UTC()))
		if err != nil {
			return fmt.Errorf("marshal job event: %w", err)
		}
		receivers, err := r.client.Publish(ctx, r.channel, body).Result()
		if err != nil {
			r.logger.Error("redis publish failed", "channel", r.channel, "url", p.ApplyURL, "error", err)
			failures++
			continue
		}
		r.logger.Debug("published job event", "channel", r.channel, "url", p.ApplyURL, "receivers", receivers)
	}

	if failures == len(postings) {
		return fmt.Errorf("all %d redis publishes failed", failures)
	}
	r.logger.Info("redis notifications complete", "channel", r.channel, "sent", len(postings)-failures, "failed", failures)
	return nil
}

// Close releases the Redis connection.
func (r *RedisNotifier) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
