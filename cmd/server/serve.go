package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/iliyamo/bearer-auth-api/internal/config"
	"github.com/iliyamo/bearer-auth-api/internal/handler"
	"github.com/iliyamo/bearer-auth-api/internal/logging"
	"github.com/iliyamo/bearer-auth-api/internal/queue"
	"github.com/iliyamo/bearer-auth-api/internal/repository"
	"github.com/iliyamo/bearer-auth-api/internal/router"
	"github.com/iliyamo/bearer-auth-api/internal/service"
	"github.com/iliyamo/bearer-auth-api/internal/utils"
)

const shutdownTimeout = 15 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the auth API.  Stops gracefully on SIGINT or SIGTERM, waiting
for queued reset mail to be handed to the broker.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, config.Load())
		},
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	logger := logging.SetDefault(serviceName, version, cfg.LogFormat)

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		logging.LogError(ctx, logger, "startup failed", err)
		return err
	}
	defer d.Close()

	codec, err := utils.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	creds, err := service.NewCredentials(d.users, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	auth, err := service.NewAuthService(creds, codec, d.deny, d.metrics, logger)
	if err != nil {
		return err
	}
	guard, err := service.NewGuard(d.users, codec, d.deny, d.metrics)
	if err != nil {
		return err
	}

	pub, err := newPublisher(cfg, logger, d.metrics)
	if err != nil {
		return err
	}
	dispatcher := queue.NewDispatcher(pub, cfg.MailDispatchTimeout, logger, d.metrics)
	reset, err := service.NewResetService(creds, dispatcher, cfg.Auth.ResetWindow, cfg.Auth.FrontendURL, d.metrics, logger)
	if err != nil {
		return err
	}

	e := router.New(logger)
	router.RegisterRoutes(e, d.registry, d.pingers()...)
	router.RegisterAuth(e, handler.NewAuthHandler(auth, reset, cfg.Auth.TokenTransport, logger), guard)

	if p, ok := d.deny.(repository.Purger); ok {
		go purgeLoop(ctx, p, cfg.DenylistPurgeInterval, logger)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", ":"+cfg.Port, "env", cfg.Env,
			"store", cfg.StoreDriver, "denylist", cfg.DenylistDriver, "queue", cfg.QueueDriver)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.LogError(shutdownCtx, logger, "http shutdown", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logging.LogError(shutdownCtx, logger, "mail dispatcher shutdown", err)
	}
	return nil
}

// purgeLoop sweeps expired deny-list entries until ctx is done.
func purgeLoop(ctx context.Context, p repository.Purger, every time.Duration, logger *slog.Logger) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := p.PurgeExpired(ctx, now)
			if err != nil {
				if ctx.Err() == nil {
					logging.LogError(ctx, logger, "deny-list purge failed", err)
				}
				continue
			}
			if n > 0 {
				logger.InfoContext(ctx, "deny-list purged", "rows", n)
			}
		}
	}
}
