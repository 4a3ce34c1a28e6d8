package queue

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/samber/oops"
)

// Publisher hands an event to the broker.
type Publisher interface {
	Publish(ctx context.Context, ev PasswordResetRequested) error
	Close() error
}

// AMQPPublisher publishes persistent JSON messages to a durable RabbitMQ
// queue on the default exchange.  A connection is dialled per publish.
type AMQPPublisher struct {
	url   string
	queue string
	dial  func(url string) (*amqp.Connection, error)
}

func NewAMQPPublisher(url, queue string) *AMQPPublisher {
	if queue == "" {
		queue = PasswordResetQueue
	}
	return &AMQPPublisher{url: url, queue: queue, dial: amqp.Dial}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev PasswordResetRequested) error {
	errb := oops.In("amqp_publisher").With("queue", p.queue)

	body, err := encode(ev)
	if err != nil {
		return errb.Wrapf(err, "marshal event")
	}

	conn, err := p.dial(p.url)
	if err != nil {
		return errb.Wrapf(err, "dial broker")
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return errb.Wrapf(err, "open channel")
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return errb.Wrapf(err, "declare queue")
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return errb.Wrapf(err, "publish")
	}
	return nil
}

func (p *AMQPPublisher) Close() error { return nil }

// InlinePublisher runs the handler in-process instead of going through a
// broker.  Used for development and single-binary deployments.
type InlinePublisher struct {
	handle Handler
}

func NewInlinePublisher(h Handler) *InlinePublisher { return &InlinePublisher{handle: h} }

func (p *InlinePublisher) Publish(ctx context.Context, ev PasswordResetRequested) error {
	return p.handle(ctx, ev)
}

func (p *InlinePublisher) Close() error { return nil }
