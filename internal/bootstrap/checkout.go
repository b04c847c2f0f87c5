package bootstrap

import (
	"fmt"

	"github.com/cassiomorais/checkout/internal/gateway"
	"github.com/cassiomorais/checkout/internal/infrastructure/config"
	infraRedis "github.com/cassiomorais/checkout/internal/infrastructure/redis"
	"github.com/cassiomorais/checkout/internal/providers"
	"github.com/cassiomorais/checkout/internal/relay"
	"github.com/cassiomorais/checkout/internal/repository/postgres"
	"github.com/cassiomorais/checkout/internal/service"
	"github.com/cassiomorais/checkout/pkg/retry"
)

// Checkout is the wired checkout stack.
type Checkout struct {
	Gateway *gateway.Gateway
	Service *service.CheckoutService
	// Relay is set only for the hosted provider.
	Relay *relay.CallbackRelay
	// Outbox publishes recorded outcomes on the outcome stream.
	Outbox      *relay.OutboxRelay
	Idempotency *postgres.IdempotencyRepository
}

// NewCheckout builds the provider selected by config, the gateway guarding it,
// the service recording its outcomes and the outbox relay announcing them.
func NewCheckout(app *App) (*Checkout, error) {
	cfg := app.Config.Checkout
	producer := infraRedis.NewStreamProducer(app.Redis, app.Metrics)

	var provider providers.CheckoutProvider
	switch cfg.Provider {
	case config.ProviderSandbox:
		provider = providers.NewSandboxProvider(config.ProviderSandbox,
			providers.WithVersion(cfg.SDKVersion),
			providers.WithLatency(cfg.Sandbox.Latency),
			providers.WithFailureRate(cfg.Sandbox.FailureRate),
			providers.WithCancelRate(cfg.Sandbox.CancelRate),
			providers.WithSigningSecret(cfg.Sandbox.SigningSecret),
		)
	case config.ProviderHosted:
		provider = providers.NewHostedProvider(config.ProviderHosted, cfg.SDKVersion, producer)
	default:
		return nil, fmt.Errorf("unknown checkout provider %q", cfg.Provider)
	}

	factory := providers.NewFactory(provider)
	factory.SetStateListener(app.Metrics.ObserveBreaker)
	provider, breaker, err := factory.Get(cfg.Provider)
	if err != nil {
		return nil, err
	}

	gw := gateway.New(provider,
		gateway.WithBreaker(breaker),
		gateway.WithLogger(app.Logger.With().Str("component", "gateway").Logger()),
		gateway.WithMetrics(app.Metrics),
		gateway.WithCallbackTimeout(cfg.CallbackTimeout),
		gateway.WithCancelCodes(cfg.CancelCodes...),
	)

	svc := service.NewCheckoutService(
		gw,
		postgres.NewAttemptRepository(app.Pool, cfg.Outbox.MaxRetries),
		app.Logger.With().Str("component", "checkout").Logger(),
		app.Metrics,
		service.Config{
			MaxWait: cfg.MaxWait,
			Retry: retry.Config{
				MaxAttempts:  uint(cfg.RecordRetries),
				InitialDelay: cfg.RecordRetryDelay,
				MaxDelay:     10 * cfg.RecordRetryDelay,
			},
		},
	)

	c := &Checkout{
		Gateway: gw,
		Service: svc,
		Outbox: relay.NewOutboxRelay(
			postgres.NewTxManager(app.Pool),
			postgres.NewOutboxRepository(app.Pool),
			producer,
			app.Logger.With().Str("component", "outbox").Logger(),
			app.Metrics,
			cfg.Outbox.PollInterval,
			cfg.Outbox.BatchSize,
		),
		Idempotency: postgres.NewIdempotencyRepository(app.Pool),
	}
	if cfg.Provider == config.ProviderHosted {
		consumer := infraRedis.NewStreamConsumer(
			app.Redis,
			infraRedis.CallbackStream,
			cfg.Relay.ConsumerGroup,
			app.Config.InstanceID,
			cfg.Relay.BatchSize,
			cfg.Relay.BlockDuration,
		)
		c.Relay = relay.NewCallbackRelay(consumer, svc, app.Logger.With().Str("component", "relay").Logger())
	}
	return c, nil
}
