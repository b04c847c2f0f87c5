package controller

import (
	"github.com/cassiomorais/checkout/internal/infrastructure/config"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	customMW "github.com/cassiomorais/checkout/internal/middleware"
	"github.com/cassiomorais/checkout/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	DB              Pinger
	Redis           RedisPinger
	CheckoutService *service.CheckoutService
	// Idempotency backs Idempotency-Key replay on POST /checkout. Nil disables it.
	Idempotency customMW.IdempotencyStore
	Metrics     *observability.Metrics
	// Gatherer backs /metrics. Nil means the default registry.
	Gatherer    prometheus.Gatherer
	Logger      zerolog.Logger
	ServiceName string
	Server      config.ServerConfig
	Auth        config.AuthConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing(deps.ServiceName))
	r.Use(chimw.RealIP)
	r.Use(customMW.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	// Long-polling GETs may wait up to checkout.max_wait.
	if deps.Server.WriteTimeout > 0 {
		r.Use(chimw.Timeout(deps.Server.WriteTimeout))
	}
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Server.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", customMW.IdempotencyKeyHeader},
		ExposedHeaders:   []string{"Location", "X-Idempotency-Replayed"},
		AllowCredentials: deps.Server.CORS.AllowCredentials,
		MaxAge:           300,
	}))
	if deps.Metrics != nil {
		r.Use(customMW.Metrics(deps.Metrics))
	}

	healthH := NewHealthController(deps.DB, deps.Redis)
	checkoutH := NewCheckoutController(deps.CheckoutService)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		if deps.Server.RateLimit.Requests > 0 {
			r.Use(customMW.RateLimit(deps.Server.RateLimit.Requests, deps.Server.RateLimit.Window))
		}
		if deps.Auth.JWTSecret != "" {
			r.Use(customMW.RequireAuth(deps.Auth.JWTSecret, deps.Auth.JWTIssuer))
		}

		if deps.Idempotency != nil {
			r.With(customMW.Idempotency(deps.Idempotency, deps.Server.Idempotency.TTL, deps.Metrics)).
				Post("/checkout", checkoutH.StartCheckout)
		} else {
			r.Post("/checkout", checkoutH.StartCheckout)
		}
		r.Get("/checkout/version", checkoutH.Version)
		r.Get("/checkout/{id}", checkoutH.GetAttempt)

		r.Post("/checkout/callbacks/success", checkoutH.ReportSuccess)
		r.Post("/checkout/callbacks/error", checkoutH.ReportError)
		r.Post("/checkout/callbacks/cancel", checkoutH.ReportCancel)
	})

	return r
}
