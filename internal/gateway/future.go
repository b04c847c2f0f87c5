package gateway

import (
	"context"
	"sync"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	"github.com/google/uuid"
)

// Future is the completion handle of one checkout. It resolves exactly once.
type Future struct {
	attemptID uuid.UUID
	done      chan struct{}
	once      sync.Once
	outcome   checkout.Outcome
}

func newFuture(attemptID uuid.UUID) *Future {
	return &Future{attemptID: attemptID, done: make(chan struct{})}
}

// AttemptID identifies the checkout this future belongs to.
func (f *Future) AttemptID() uuid.UUID { return f.attemptID }

// Done is closed once the outcome is available.
func (f *Future) Done() <-chan struct{} { return f.done }

// Await blocks until the checkout settles or ctx ends. Giving up on the wait
// does not cancel the checkout.
func (f *Future) Await(ctx context.Context) (checkout.Outcome, error) {
	select {
	case <-f.done:
		return f.outcome, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Outcome returns the outcome without blocking. ok is false while pending.
func (f *Future) Outcome() (o checkout.Outcome, ok bool) {
	select {
	case <-f.done:
		return f.outcome, true
	default:
		return nil, false
	}
}

func (f *Future) resolve(o checkout.Outcome) bool {
	resolved := false
	f.once.Do(func() {
		f.outcome = o
		close(f.done)
		resolved = true
	})
	return resolved
}
