package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cassiomorais/checkout/internal/bootstrap"
	"github.com/cassiomorais/checkout/internal/controller"
	"github.com/cassiomorais/checkout/internal/repository/postgres"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName = "checkout-api"
	version     = "0.1.0"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, serviceName, "checkout", version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}

	checkout, err := bootstrap.NewCheckout(app)
	if err != nil {
		app.Logger.Error().Err(err).Msg("Failed to build checkout")
		app.Close(context.Background())
		os.Exit(1)
	}

	router := controller.NewRouter(controller.RouterDeps{
		DB:              app.Pool,
		Redis:           app.Redis,
		CheckoutService: checkout.Service,
		Idempotency:     checkout.Idempotency,
		Metrics:         app.Metrics,
		Gatherer:        app.Registry,
		Logger:          app.Logger,
		ServiceName:     serviceName,
		Server:          app.Config.Server,
		Auth:            app.Config.Auth,
	})

	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// 1. HTTP server.
	g.Go(func() error {
		app.Logger.Info().Str("addr", addr).
			Str("provider", checkout.Gateway.ProviderName()).
			Str("sdk_version", checkout.Gateway.Version()).
			Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// 2. Callback relay, hosted provider only.
	if checkout.Relay != nil {
		g.Go(func() error {
			return checkout.Relay.Run(gCtx)
		})
	}

	// 3. Outbox relay.
	g.Go(func() error {
		return checkout.Outbox.Run(gCtx)
	})

	// 4. Expired idempotency keys.
	g.Go(func() error {
		return runIdempotencyCleanup(gCtx, app.Logger, checkout.Idempotency, app.Config.Server.Idempotency.CleanupInterval)
	})

	// 5. Graceful shutdown once a signal arrives or a component fails.
	g.Go(func() error {
		<-gCtx.Done()
		app.Logger.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error().Err(err).Msg("Server forced to shutdown")
		}
		if err := checkout.Service.Close(shutdownCtx); err != nil {
			app.Logger.Warn().Err(err).Msg("Outcome recorders still running at shutdown")
		}
		app.Close(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		app.Logger.Error().Err(err).Msg("Server error")
		os.Exit(1)
	}
	app.Logger.Info().Msg("Server exited")
}

func runIdempotencyCleanup(
	ctx context.Context,
	logger zerolog.Logger,
	repo *postgres.IdempotencyRepository,
	interval time.Duration,
) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		n, err := repo.Cleanup(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to clean up idempotency keys")
			continue
		}
		if n > 0 {
			logger.Debug().Int64("deleted", n).Msg("Cleaned up idempotency keys")
		}
	}
}
