package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/coupon-lot-qc/internal/config"
)

// GeneratedHandler processes one coupons.generated event.
type GeneratedHandler func(ctx context.Context, ev CouponsGeneratedEvent) error

// Consumer listens to the coupons.generated queue and hands every event to
// a handler, typically the automatic QC run.
type Consumer struct {
	url      string
	queue    string
	prefetch int
	handle   GeneratedHandler
	log      zerolog.Logger
}

// NewConsumer builds a Consumer from the queue configuration.
func NewConsumer(cfg config.QueueConfig, handle GeneratedHandler, log zerolog.Logger) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 10
	}
	return &Consumer{
		url:      cfg.URL,
		queue:    cfg.GeneratedQueue,
		prefetch: prefetch,
		handle:   handle,
		log:      log.With().Str("component", "generated-consumer").Str("queue", cfg.GeneratedQueue).Logger(),
	}
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Lost
// connections are re-dialled with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Err(err).Msg("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "channel open")
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.log.Warn().Err(err).Msg("set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return errors.Wrap(err, "queue declare")
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "queue consume")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.process(ctx, d.Body); err != nil {
				c.log.Error().Err(err).Str("message_id", d.MessageId).Msg("handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// process decodes one delivery body and runs the handler on it.
func (c *Consumer) process(ctx context.Context, body []byte) error {
	var ev CouponsGeneratedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return errors.Wrap(err, "unmarshal")
	}
	if ev.BatchID == 0 {
		return errors.New("event without batch_id")
	}
	log := c.log.With().Uint64("batch_id", ev.BatchID).Str("event_id", ev.EventID).Logger()
	if err := c.handle(log.WithContext(ctx), ev); err != nil {
		return errors.Wrapf(err, "batch %d", ev.BatchID)
	}
	log.Info().Msg("generated event handled")
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
