package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sanathsadiga/jobautomate/internal/model"
)

const (
	DefaultAMQPExchange   = "jobautomate"
	DefaultAMQPRoutingKey = "jobs.matched"
)

// Ensure AMQPNotifier implements model.Notifier.
var _ model.Notifier = (*AMQPNotifier)(nil)

// amqpPublisher is the subset of *amqp.Channel the notifier uses.
type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes one persistent JSON message per posting to a topic exchange.
type AMQPNotifier struct {
	channel    amqpPublisher
	closers    []func() error
	exchange   string
	routingKey string
	logger     *slog.Logger
}

// NewAMQPNotifier dials url, declares a durable topic exchange and returns a
// notifier publishing to it.
func NewAMQPNotifier(url, exchange, routingKey string, logger *slog.Logger) (*AMQPNotifier, error) {
	if exchange == "" {
		exchange = DefaultAMQPExchange
	}

	conn, err := amqp.DialConfig(url, amqp.Config{Heartbeat: 10 * time.Second, Locale: "en_US"})
	if err != nil {
		return nil, fmt.Errorf("connecting to amqp broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening amqp channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}

	n := newAMQPNotifier(ch, exchange, routingKey, logger)
	n.closers = []func() error{ch.Close, conn.Close}
	logger.Info("amqp notifier ready", "exchange", exchange, "routing_key", n.routingKey)
	return n, nil
}

func newAMQPNotifier(ch amqpPublisher, exchange, routingKey string, logger *slog.Logger) *AMQPNotifier {
	if routingKey == "" {
		routingKey = DefaultAMQPRoutingKey
	}
	return &AMQPNotifier{channel: ch, exchange: exchange, routingKey: routingKey, logger: logger}
}

// Notify publishes each posting. Returns an error only if ALL publishes fail.
func (a *AMQPNotifier) Notify(ctx context.Context, postings []model.Posting) error {
	if len(postings) == 0 {
		return nil
	}

	failures := 0
	for _, p := range postings {
		now := time.Now().UTC()
		body, err := json.Marshal(newJobEvent(p, now))
		if err != nil {
			return fmt.Errorf("marshal job event: %w", err)
		}

		err = a.channel.PublishWithContext(ctx,
			a.exchange,   // exchange
			a.routingKey, // routing key
			false,        // mandatory
			false,        // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				Body:         body,
				DeliveryMode: amqp.Persistent,
				Timestamp:    now,
				Type:         EventNewJob,
			},
		)
		if err != nil {
			a.logger.Error("amqp publish failed", "exchange", a.exchange, "url", p.ApplyURL, "error", err)
			failures++
		}
	}

	if failures == len(postings) {
		return fmt.Errorf("all %d amqp publishes failed", failures)
	}
	a.logger.Info("amqp notifications complete", "exchange", a.exchange, "sent", len(postings)-failures, "failed", failures)
	return nil
}

// Close closes the channel and the connection.
func (a *AMQPNotifier) Close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
