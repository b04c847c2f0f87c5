package checkout

import (
	"context"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/google/uuid"
)

// AttemptStatus represents the lifecycle of a dispatched checkout.
type AttemptStatus string

const (
	AttemptPending   AttemptStatus = "pending"
	AttemptSucceeded AttemptStatus = "succeeded"
	AttemptFailed    AttemptStatus = "failed"
	AttemptCancelled AttemptStatus = "cancelled"
)

// Attempt is the audit record of one checkout handed to a provider.
type Attempt struct {
	ID               uuid.UUID
	OrderID          string
	MerchantName     string
	AmountMinorUnits int64
	Currency         string
	Status           AttemptStatus
	Result           *Record
	CreatedAt        time.Time
	ResolvedAt       *time.Time
}

// NewAttempt records a pending checkout for the given request.
func NewAttempt(id uuid.UUID, req PaymentRequest, now time.Time) *Attempt {
	return &Attempt{
		ID:               id,
		OrderID:          req.OrderID,
		MerchantName:     req.Name,
		AmountMinorUnits: req.AmountMinorUnits,
		Currency:         req.EffectiveCurrency(),
		Status:           AttemptPending,
		CreatedAt:        now,
	}
}

// StatusFor maps an outcome to the terminal attempt status.
func StatusFor(o Outcome) AttemptStatus {
	switch ToRecord(o).Status {
	case StatusSuccess:
		return AttemptSucceeded
	case StatusCancelled:
		return AttemptCancelled
	default:
		return AttemptFailed
	}
}

// Resolve moves a pending attempt to its terminal status.
func (a *Attempt) Resolve(o Outcome, now time.Time) error {
	if a.Status != AttemptPending {
		return errors.NewDomainError(
			"already_resolved",
			"attempt "+a.ID.String()+" is "+string(a.Status),
			errors.ErrAttemptAlreadyResolved,
		)
	}
	rec := ToRecord(o)
	a.Status = StatusFor(o)
	a.Result = &rec
	a.ResolvedAt = &now
	return nil
}

// IsPending reports whether the attempt still awaits its outcome.
func (a *Attempt) IsPending() bool {
	return a.Status == AttemptPending
}

// AttemptRepository defines the interface for attempt persistence
type AttemptRepository interface {
	// Create stores a new pending attempt
	Create(ctx context.Context, a *Attempt) error

	// Resolve stores the outcome of a pending attempt
	Resolve(ctx context.Context, a *Attempt) error

	// GetByID retrieves an attempt by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Attempt, error)
}
