package gateway

import (
	"time"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/cassiomorais/checkout/internal/providers"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// DefaultCancelCode is the provider error code meaning the customer closed
// the checkout.
const DefaultCancelCode = "0"

type Option func(*Gateway)

// WithBreaker routes every dispatch through the given circuit breaker.
func WithBreaker(b *providers.Breaker) Option {
	return func(g *Gateway) { g.breaker = b }
}

func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(g *Gateway) { g.tracer = t }
}

// WithCallbackTimeout settles a checkout that has not heard back within d as
// a CALLBACK_TIMEOUT failure. Zero disables it.
func WithCallbackTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.callbackTimeout = d }
}

// WithCancelCodes replaces the set of provider error codes reported as a
// cancellation rather than a failure.
func WithCancelCodes(codes ...string) Option {
	return func(g *Gateway) {
		g.cancelCodes = make(map[string]struct{}, len(codes))
		for _, c := range codes {
			g.cancelCodes[checkout.NormalizeCode(c)] = struct{}{}
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}
