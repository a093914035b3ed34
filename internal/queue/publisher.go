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

// Publisher sends domain events to durable RabbitMQ queues.  Each publish
// dials its own connection, so a broker outage never leaves a broken
// channel behind.  Errors are logged and returned; callers decide whether
// to ignore them.
type Publisher struct {
	url            string
	generatedQueue string
	qcQueue        string
}

// NewPublisher builds a Publisher from the queue configuration.
func NewPublisher(cfg config.QueueConfig) *Publisher {
	return &Publisher{url: cfg.URL, generatedQueue: cfg.GeneratedQueue, qcQueue: cfg.QCCompletedQueue}
}

// PublishCouponsGenerated publishes ev to the coupons.generated queue.
func (p *Publisher) PublishCouponsGenerated(ctx context.Context, ev CouponsGeneratedEvent) error {
	return p.publish(ctx, p.generatedQueue, ev.EventID, ev)
}

// PublishQCCompleted publishes ev to the qc.completed queue.
func (p *Publisher) PublishQCCompleted(ctx context.Context, ev QCCompletedEvent) error {
	return p.publish(ctx, p.qcQueue, ev.EventID, ev)
}

func (p *Publisher) publish(ctx context.Context, queue, id string, event any) error {
	log := zerolog.Ctx(ctx).With().Str("queue", queue).Str("event_id", id).Logger()

	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "rabbitmq: marshal event")
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: dial failed")
		return errors.Wrap(err, "rabbitmq: dial")
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: channel open failed")
		return errors.Wrap(err, "rabbitmq: channel")
	}
	defer func() { _ = ch.Close() }()

	// idempotent; durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		log.Warn().Err(err).Msg("rabbitmq: queue declare failed")
		return errors.Wrap(err, "rabbitmq: queue declare")
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		log.Warn().Err(err).Msg("rabbitmq: publish failed")
		return errors.Wrap(err, "rabbitmq: publish")
	}
	log.Debug().Msg("event published")
	return nil
}
