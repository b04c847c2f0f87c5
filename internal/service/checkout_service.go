package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/gateway"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/cassiomorais/checkout/pkg/retry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config tunes the checkout service.
type Config struct {
	// MaxWait caps how long GetAttempt may block for an outcome.
	MaxWait time.Duration
	// Retry governs persisting outcomes.
	Retry retry.Config
}

// CheckoutService handles checkout-related business logic.
type CheckoutService struct {
	gateway  *gateway.Gateway
	attempts checkout.AttemptRepository
	logger   zerolog.Logger
	metrics  *observability.Metrics
	cfg      Config
	now      func() time.Time

	wg       sync.WaitGroup
	mu       sync.Mutex
	inflight map[uuid.UUID]chan struct{}
}

// NewCheckoutService creates a new CheckoutService. metrics may be nil.
func NewCheckoutService(
	gw *gateway.Gateway,
	attempts checkout.AttemptRepository,
	logger zerolog.Logger,
	metrics *observability.Metrics,
	cfg Config,
) *CheckoutService {
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 60 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.Config{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}
	}
	return &CheckoutService{
		gateway:  gw,
		attempts: attempts,
		logger:   logger,
		metrics:  metrics,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		inflight: make(map[uuid.UUID]chan struct{}),
	}
}

// StartCheckout opens a checkout and records it as a pending attempt. The
// outcome is recorded in the background once the provider reports back.
func (s *CheckoutService) StartCheckout(ctx context.Context, req checkout.PaymentRequest) (*checkout.Attempt, error) {
	fut, err := s.gateway.Initiate(ctx, req)
	if err != nil {
		return nil, err
	}

	attempt := checkout.NewAttempt(fut.AttemptID(), req, s.now())
	log := s.logger.With().Str("attempt_id", attempt.ID.String()).Logger()

	if err := s.attempts.Create(ctx, attempt); err != nil {
		// The checkout is already on screen. The recorder inserts the
		// attempt once it settles.
		log.Error().Err(err).Msg("failed to store pending attempt")
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.inflight[attempt.ID] = done
	s.mu.Unlock()

	s.wg.Add(1)
	go s.record(context.WithoutCancel(ctx), *attempt, fut, done)

	log.Info().
		Str("order_id", attempt.OrderID).
		Int64("amount", attempt.AmountMinorUnits).
		Str("currency", attempt.Currency).
		Msg("checkout started")
	return attempt, nil
}

func (s *CheckoutService) record(ctx context.Context, attempt checkout.Attempt, fut *gateway.Future, done chan struct{}) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.inflight, attempt.ID)
		s.mu.Unlock()
		close(done)
	}()

	outcome, err := fut.Await(ctx)
	if err != nil {
		return
	}
	log := s.logger.With().Str("attempt_id", attempt.ID.String()).Logger()

	if err := attempt.Resolve(outcome, s.now()); err != nil {
		log.Error().Err(err).Msg("failed to resolve attempt")
		return
	}

	err = retry.Do(ctx, s.retryConfig("resolve", log), func() error {
		err := s.attempts.Resolve(ctx, &attempt)
		if errors.Is(err, domainErrors.ErrAttemptNotFound) {
			err = s.attempts.Create(ctx, &attempt)
		}
		if errors.Is(err, domainErrors.ErrAttemptAlreadyResolved) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		log.Error().Err(err).Str("status", string(attempt.Status)).Msg("failed to record checkout outcome")
	}
}

func (s *CheckoutService) retryConfig(operation string, log zerolog.Logger) retry.Config {
	cfg := s.cfg.Retry
	cfg.OnRetry = func(n uint, err error) {
		if s.metrics != nil {
			s.metrics.RecordRetries.WithLabelValues(operation).Inc()
		}
		log.Warn().Err(err).Uint("attempt", n+1).Str("operation", operation).Msg("retrying")
	}
	return cfg
}

// GetAttempt returns the stored attempt. When it is still pending and wait is
// positive, it blocks up to wait (capped by MaxWait) for the outcome first.
func (s *CheckoutService) GetAttempt(ctx context.Context, id uuid.UUID, wait time.Duration) (*checkout.Attempt, error) {
	if wait > 0 {
		s.mu.Lock()
		done, ok := s.inflight[id]
		s.mu.Unlock()

		if ok {
			if wait > s.cfg.MaxWait {
				wait = s.cfg.MaxWait
			}
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-done:
			case <-timer.C:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return s.attempts.GetByID(ctx, id)
}

// ReportSuccess delivers a provider success. A nil attemptID settles whatever
// checkout is pending. It reports whether a checkout was settled.
func (s *CheckoutService) ReportSuccess(attemptID *uuid.UUID, data checkout.SuccessData) bool {
	if attemptID != nil {
		return s.gateway.CallbacksFor(*attemptID).Success(data)
	}
	return s.gateway.OnProviderSuccess(data)
}

// ReportError delivers a provider error with its raw payload.
func (s *CheckoutService) ReportError(attemptID *uuid.UUID, code any, raw any) bool {
	if attemptID != nil {
		return s.gateway.CallbacksFor(*attemptID).Error(code, raw)
	}
	return s.gateway.OnProviderError(code, raw)
}

// ReportCancel delivers a user dismissal.
func (s *CheckoutService) ReportCancel(attemptID *uuid.UUID) bool {
	if attemptID != nil {
		return s.gateway.CallbacksFor(*attemptID).Cancel()
	}
	return s.gateway.OnProviderCancel()
}

// Version returns the checkout provider's SDK version.
func (s *CheckoutService) Version() string {
	return s.gateway.Version()
}

// ProviderName names the provider checkouts are dispatched to.
func (s *CheckoutService) ProviderName() string {
	return s.gateway.ProviderName()
}

// Close waits for outcome recorders to finish or ctx to end.
func (s *CheckoutService) Close(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
