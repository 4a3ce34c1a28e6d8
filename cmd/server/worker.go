package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/iliyamo/bearer-auth-api/internal/config"
	"github.com/iliyamo/bearer-auth-api/internal/logging"
	"github.com/iliyamo/bearer-auth-api/internal/metrics"
	"github.com/iliyamo/bearer-auth-api/internal/queue"
)

// NewWorkerCmd creates the worker subcommand.
func NewWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Deliver queued password reset mail",
		Long: `Consume password reset events from RabbitMQ or Kafka (QUEUE_DRIVER)
and deliver them through the configured mailer.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWorker(ctx, config.Load())
		},
	}
}

type consumer interface {
	Run(ctx context.Context) error
}

func newConsumer(cfg config.Config, h queue.Handler, logger *slog.Logger) (consumer, error) {
	switch cfg.QueueDriver {
	case "amqp":
		return queue.NewAMQPConsumer(cfg.AMQP.URL, cfg.AMQP.Queue, h, logger), nil
	case "kafka":
		return queue.NewKafkaConsumer(cfg.Kafka, h, logger), nil
	default:
		return nil, oops.Code("CONFIG_INVALID").Errorf("worker needs QUEUE_DRIVER amqp or kafka, got %q", cfg.QueueDriver)
	}
}

func runWorker(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	logger := logging.SetDefault(serviceName+"-worker", version, cfg.LogFormat)

	_, m := metrics.NewRegistry()
	ml, err := newMailer(cfg, nil, logger)
	if err != nil {
		return err
	}
	c, err := newConsumer(cfg, queue.MailHandler(ml, m), logger)
	if err != nil {
		return err
	}

	logger.Info("worker started", "queue", cfg.QueueDriver, "mailer", cfg.MailerDriver)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.LogError(ctx, logger, "worker stopped", err)
		return err
	}
	logger.Info("worker stopped")
	return nil
}
