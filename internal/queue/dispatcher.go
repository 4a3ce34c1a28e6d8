package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/bearer-auth-api/internal/logging"
	"github.com/iliyamo/bearer-auth-api/internal/metrics"
)

// Dispatcher publishes events on background goroutines.  Enqueue never
// blocks on the broker and never reports failure to its caller; failures
// are logged and counted.
type Dispatcher struct {
	pub     Publisher
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

func NewDispatcher(pub Publisher, timeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{pub: pub, timeout: timeout, logger: logger, metrics: m}
}

// Enqueue publishes ev asynchronously.  The request context's values are
// kept for logging but its cancellation is not, so the publish outlives
// the HTTP response.
func (d *Dispatcher) Enqueue(ctx context.Context, ev PasswordResetRequested) {
	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		pctx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()

		if err := d.pub.Publish(pctx, ev); err != nil {
			d.metrics.Mail("publish_failed")
			logging.LogError(pctx, d.logger, "password reset mail not queued", err)
			return
		}
		d.metrics.Mail("published")
	}()
}

// Close waits for in-flight publishes, bounded by ctx, then closes the
// publisher.
func (d *Dispatcher) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return d.pub.Close()
}
