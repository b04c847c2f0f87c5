package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/sony/gobreaker/v2"
)

// Breaker guards provider dispatch.
type Breaker = gobreaker.CircuitBreaker[struct{}]

// IsProviderFailure reports whether a dispatch error says anything about the
// provider's health. An aborted request or a busy local surface does not.
func IsProviderFailure(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, domainErrors.ErrSurfaceBusy):
		return false
	default:
		return true
	}
}

// StateListener observes circuit breaker transitions.
type StateListener func(name string, from, to gobreaker.State)

// Factory creates and caches provider instances with circuit breakers.
type Factory struct {
	providers       map[string]CheckoutProvider
	circuitBreakers map[string]*Breaker

	mu       sync.RWMutex
	listener StateListener
}

// NewFactory creates a new provider factory with the given providers.
// If no providers are given, a default sandbox provider is registered.
func NewFactory(providersList ...CheckoutProvider) *Factory {
	f := &Factory{
		providers:       make(map[string]CheckoutProvider),
		circuitBreakers: make(map[string]*Breaker),
	}

	if len(providersList) == 0 {
		f.Register(NewSandboxProvider("sandbox", WithLatency(200*time.Millisecond)))
	} else {
		for _, p := range providersList {
			f.Register(p)
		}
	}

	return f
}

// SetStateListener installs a listener for breaker state changes.
func (f *Factory) SetStateListener(l StateListener) {
	f.mu.Lock()
	f.listener = l
	f.mu.Unlock()
}

// Register registers a provider and creates a circuit breaker for it.
func (f *Factory) Register(p CheckoutProvider) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.providers[p.Name()] = p
	f.circuitBreakers[p.Name()] = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		IsSuccessful: func(err error) bool {
			return !IsProviderFailure(err)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.mu.RLock()
			l := f.listener
			f.mu.RUnlock()
			if l != nil {
				l(name, from, to)
			}
		},
	})
}

// Get returns the provider and its circuit breaker for the given name.
func (f *Factory) Get(name string) (CheckoutProvider, *Breaker, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	p, ok := f.providers[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown provider %q", name)
	}
	return p, f.circuitBreakers[name], nil
}
