package queue

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/samber/oops"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"

	"github.com/iliyamo/bearer-auth-api/internal/config"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a topic keyed by user id, so all resets
// for one account land on the same partition in order.
type KafkaPublisher struct {
	w kafkaWriter
}

func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topicOrDefault(cfg.Topic),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}
	if cfg.Username != "" || cfg.TLS {
		t := &kafka.Transport{}
		if cfg.Username != "" {
			t.SASL = plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
		}
		if cfg.TLS {
			t.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		w.Transport = t
	}
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev PasswordResetRequested) error {
	body, err := encode(ev)
	if err != nil {
		return oops.In("kafka_publisher").Wrapf(err, "marshal event")
	}
	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(ev.UserID, 10)),
		Value: body,
		Time:  time.Now(),
	})
	if err != nil {
		return oops.In("kafka_publisher").With("user_id", ev.UserID).Wrapf(err, "write message")
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// KafkaConsumer reads events with a consumer group.  Offsets are committed
// after the handler runs, whether or not it succeeded, so a poison message
// cannot wedge the partition.
type KafkaConsumer struct {
	r      kafkaReader
	handle Handler
	logger *slog.Logger
}

func NewKafkaConsumer(cfg config.KafkaConfig, h Handler, logger *slog.Logger) *KafkaConsumer {
	dialer := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true}
	if cfg.Username != "" {
		dialer.SASLMechanism = plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
	}
	if cfg.TLS {
		dialer.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    topicOrDefault(cfg.Topic),
		MinBytes: 1,
		MaxBytes: 10e6,
		Dialer:   dialer,
	})
	return newKafkaConsumer(r, h, logger)
}

func newKafkaConsumer(r kafkaReader, h Handler, logger *slog.Logger) *KafkaConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaConsumer{r: r, handle: h, logger: logger.With("component", "kafka-consumer")}
}

// Run consumes until ctx is cancelled.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	defer func() { _ = c.r.Close() }()
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.ErrorContext(ctx, "fetch message failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		if err := handleBody(ctx, msg.Value, c.handle); err != nil {
			c.logger.ErrorContext(ctx, "handle message failed",
				"error", err, "partition", msg.Partition, "offset", msg.Offset)
		}
		if err := c.r.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.ErrorContext(ctx, "commit offset failed", "error", err, "offset", msg.Offset)
		}
	}
}

func topicOrDefault(topic string) string {
	if topic == "" {
		return PasswordResetQueue
	}
	return topic
}
