package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPConsumer listens on the password reset queue and hands each event to
// a Handler.  Run keeps a reconnect loop going until its context ends;
// a failing message is rejected without requeue so the worker keeps running.
type AMQPConsumer struct {
	url    string
	queue  string
	handle Handler
	logger *slog.Logger
}

func NewAMQPConsumer(url, queue string, h Handler, logger *slog.Logger) *AMQPConsumer {
	if queue == "" {
		queue = PasswordResetQueue
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQPConsumer{url: url, queue: queue, handle: h, logger: logger.With("component", "amqp-consumer")}
}

// Run connects, declares the durable queue and consumes.  It returns nil
// once ctx is cancelled.
func (c *AMQPConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.WarnContext(ctx, "failed to dial broker", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.logger.WarnContext(ctx, "consume loop ended; reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *AMQPConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.WarnContext(ctx, "set QoS failed", "error", err)
	}

	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.deliver(ctx, d)
		}
	}
}

func (c *AMQPConsumer) deliver(ctx context.Context, d amqp.Delivery) {
	if err := handleBody(ctx, d.Body, c.handle); err != nil {
		c.logger.ErrorContext(ctx, "handle message failed", "error", err)
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

func handleBody(ctx context.Context, body []byte, h Handler) error {
	ev, err := decode(body)
	if err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return h(ctx, ev)
}

// sleep waits for d or ctx; it reports false when ctx ended first.
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
