// Package gateway adapts a callback-driven checkout provider into a
// request/future API. At most one checkout is pending at a time and every
// checkout resolves exactly once.
package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/cassiomorais/checkout/internal/providers"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// State is the gateway's position in the checkout lifecycle.
type State int

const (
	StateIdle State = iota
	StateDispatching
	StateAwaitingCallback
)

func (s State) String() string {
	switch s {
	case StateDispatching:
		return "dispatching"
	case StateAwaitingCallback:
		return "awaiting_callback"
	default:
		return "idle"
	}
}

const callbackTimeoutDescription = "No response from checkout provider"

type pendingCall struct {
	attemptID uuid.UUID
	future    *Future
	state     State
	startedAt time.Time
	timer     *time.Timer
}

// Gateway owns the single pending-checkout slot.
type Gateway struct {
	provider        providers.CheckoutProvider
	breaker         *providers.Breaker
	logger          zerolog.Logger
	metrics         *observability.Metrics
	tracer          trace.Tracer
	callbackTimeout time.Duration
	cancelCodes     map[string]struct{}
	now             func() time.Time

	mu      sync.Mutex
	pending *pendingCall
}

func New(provider providers.CheckoutProvider, opts ...Option) *Gateway {
	g := &Gateway{
		provider:    provider,
		logger:      zerolog.Nop(),
		tracer:      otel.Tracer("checkout/gateway"),
		cancelCodes: map[string]struct{}{DefaultCancelCode: {}},
		now:         time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Initiate validates req, claims the pending slot and opens the checkout.
// The returned future resolves when the provider reports back.
func (g *Gateway) Initiate(ctx context.Context, req checkout.PaymentRequest) (*Future, error) {
	ctx, span := g.tracer.Start(ctx, "gateway.Initiate",
		trace.WithAttributes(attribute.String("checkout.provider", g.provider.Name())))
	defer span.End()

	if err := req.Validate(); err != nil {
		g.countInitiation("invalid")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	g.mu.Lock()
	if g.pending != nil {
		busy := g.pending.attemptID
		g.mu.Unlock()
		g.countInitiation("concurrent")
		g.logger.Warn().Str("pending_attempt_id", busy.String()).Msg("checkout rejected, another is in progress")
		span.SetStatus(codes.Error, domainErrors.ErrConcurrentRequest.Error())
		return nil, domainErrors.NewDomainError(domainErrors.CodeConcurrentRequest,
			"a checkout is already in progress", domainErrors.ErrConcurrentRequest)
	}
	call := &pendingCall{
		attemptID: uuid.New(),
		state:     StateDispatching,
		startedAt: g.now(),
	}
	call.future = newFuture(call.attemptID)
	g.pending = call
	if g.callbackTimeout > 0 {
		id := call.attemptID
		call.timer = time.AfterFunc(g.callbackTimeout, func() { g.expire(id) })
	}
	g.mu.Unlock()

	if g.metrics != nil {
		g.metrics.PendingCheckouts.Inc()
	}
	span.SetAttributes(attribute.String("checkout.attempt_id", call.attemptID.String()))
	log := g.logger.With().Str("attempt_id", call.attemptID.String()).Logger()

	open := providers.OpenRequest{AttemptID: call.attemptID, Payload: req.Payload()}
	if err := g.dispatch(ctx, open, g.CallbacksFor(call.attemptID)); err != nil {
		span.RecordError(err)
		failure := checkout.Failure{Error: checkout.PaymentError{
			Code:        domainErrors.CodeInitError,
			Description: err.Error(),
		}}
		if g.settle(call.attemptID, failure) {
			g.countInitiation("dispatch_failed")
			span.SetStatus(codes.Error, err.Error())
			log.Error().Err(err).Msg("checkout dispatch failed")
			return nil, domainErrors.NewDispatchError(err)
		}
		log.Warn().Err(err).Msg("checkout dispatch reported an error after the provider settled it")
		g.countInitiation("accepted")
		return call.future, nil
	}

	g.mu.Lock()
	if g.pending == call {
		call.state = StateAwaitingCallback
	}
	g.mu.Unlock()

	g.countInitiation("accepted")
	log.Info().Str("provider", g.provider.Name()).Msg("checkout dispatched")
	return call.future, nil
}

func (g *Gateway) dispatch(ctx context.Context, req providers.OpenRequest, cb providers.Callbacks) error {
	if g.breaker == nil {
		return g.provider.Open(ctx, req, cb)
	}
	_, err := g.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, g.provider.Open(ctx, req, cb)
	})
	if g.metrics != nil {
		result := "success"
		switch {
		case providers.IsProviderFailure(err):
			result = "failure"
		case err != nil:
			result = "aborted"
		}
		g.metrics.CircuitBreakerRequests.WithLabelValues(g.breaker.Name(), result).Inc()
	}
	return err
}

// OnProviderSuccess settles whatever checkout is pending as a success.
func (g *Gateway) OnProviderSuccess(data checkout.SuccessData) bool {
	return g.deliver(uuid.Nil, "success", successOutcome(data))
}

// OnProviderError settles whatever checkout is pending from the provider's
// error code and raw payload. Codes in the cancel set resolve as Cancelled.
func (g *Gateway) OnProviderError(code any, raw any) bool {
	return g.deliver(uuid.Nil, "error", g.errorOutcome(code, raw))
}

// OnProviderCancel settles whatever checkout is pending as cancelled.
func (g *Gateway) OnProviderCancel() bool {
	return g.deliver(uuid.Nil, "cancel", checkout.Cancelled{})
}

// CallbacksFor returns callbacks that only settle the given attempt.
func (g *Gateway) CallbacksFor(attemptID uuid.UUID) *AttemptCallbacks {
	return &AttemptCallbacks{g: g, attemptID: attemptID}
}

// State reports where the gateway is in the checkout lifecycle.
func (g *Gateway) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return StateIdle
	}
	return g.pending.state
}

// Current returns the pending checkout's future, or nil when idle.
func (g *Gateway) Current() *Future {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return nil
	}
	return g.pending.future
}

// Version returns the provider SDK version.
func (g *Gateway) Version() string {
	return g.provider.Version()
}

// ProviderName returns the name of the provider checkouts are opened with.
func (g *Gateway) ProviderName() string {
	return g.provider.Name()
}

func (g *Gateway) errorOutcome(code any, raw any) checkout.Outcome {
	if _, ok := g.cancelCodes[checkout.NormalizeCode(code)]; ok {
		return checkout.Cancelled{}
	}
	return checkout.Failure{Error: checkout.ParseProviderError(code, raw)}
}

func successOutcome(data checkout.SuccessData) checkout.Outcome {
	return checkout.Success{
		PaymentID: data.PaymentID,
		OrderID:   data.OrderID,
		Signature: data.Signature,
	}
}

func (g *Gateway) deliver(attemptID uuid.UUID, kind string, o checkout.Outcome) bool {
	if g.settle(attemptID, o) {
		return true
	}
	if g.metrics != nil {
		g.metrics.DroppedCallbacks.WithLabelValues(kind).Inc()
	}
	ev := g.logger.Warn().Str("callback", kind)
	if attemptID != uuid.Nil {
		ev = ev.Str("attempt_id", attemptID.String())
	}
	ev.Msg("callback matched no pending checkout, dropped")
	return false
}

func (g *Gateway) expire(attemptID uuid.UUID) {
	failure := checkout.Failure{Error: checkout.PaymentError{
		Code:        domainErrors.CodeCallbackTimeout,
		Description: callbackTimeoutDescription,
	}}
	if g.settle(attemptID, failure) {
		g.logger.Warn().Str("attempt_id", attemptID.String()).
			Dur("timeout", g.callbackTimeout).Msg("checkout timed out waiting for the provider")
	}
}

// settle resolves the pending checkout with o. uuid.Nil matches whatever is
// pending. The slot is cleared before the future resolves so a caller woken
// by the future can start the next checkout at once.
func (g *Gateway) settle(attemptID uuid.UUID, o checkout.Outcome) bool {
	g.mu.Lock()
	call := g.pending
	if call == nil || (attemptID != uuid.Nil && call.attemptID != attemptID) {
		g.mu.Unlock()
		return false
	}
	g.pending = nil
	if call.timer != nil {
		call.timer.Stop()
	}
	g.mu.Unlock()

	if !call.future.resolve(o) {
		return false
	}

	status := string(o.Status())
	if g.metrics != nil {
		g.metrics.PendingCheckouts.Dec()
		g.metrics.CheckoutOutcomes.WithLabelValues(status).Inc()
		g.metrics.CheckoutDuration.WithLabelValues(status).Observe(g.now().Sub(call.startedAt).Seconds())
	}
	g.logger.Info().
		Str("attempt_id", call.attemptID.String()).
		Str("status", status).
		Msg("checkout settled")
	return true
}

func (g *Gateway) countInitiation(result string) {
	if g.metrics != nil {
		g.metrics.CheckoutInitiations.WithLabelValues(result).Inc()
	}
}

// AttemptCallbacks settles one specific attempt. It is what the gateway hands
// to the provider on Open.
type AttemptCallbacks struct {
	g         *Gateway
	attemptID uuid.UUID
}

var _ providers.Callbacks = (*AttemptCallbacks)(nil)

func (c *AttemptCallbacks) OnSuccess(data checkout.SuccessData) {
	c.Success(data)
}

func (c *AttemptCallbacks) OnError(code any, raw any) {
	c.Error(code, raw)
}

func (c *AttemptCallbacks) OnCancel() {
	c.Cancel()
}

// Success is OnSuccess reporting whether the attempt was settled.
func (c *AttemptCallbacks) Success(data checkout.SuccessData) bool {
	return c.g.deliver(c.attemptID, "success", successOutcome(data))
}

// Error is OnError reporting whether the attempt was settled.
func (c *AttemptCallbacks) Error(code any, raw any) bool {
	return c.g.deliver(c.attemptID, "error", c.g.errorOutcome(code, raw))
}

// Cancel is OnCancel reporting whether the attempt was settled.
func (c *AttemptCallbacks) Cancel() bool {
	return c.g.deliver(c.attemptID, "cancel", checkout.Cancelled{})
}
