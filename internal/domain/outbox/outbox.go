// Package outbox holds checkout outcomes waiting to be announced on the
// outcome stream. Entries are written in the same transaction that resolves
// the attempt, so a recorded outcome is never lost between the database and
// the stream.
package outbox

import (
	"time"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	"github.com/google/uuid"
)

// EventCheckoutResolved is the only event the checkout service emits.
const EventCheckoutResolved = "checkout.resolved"

const DefaultMaxRetries = 5

type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

type Entry struct {
	ID          uuid.UUID
	AttemptID   uuid.UUID
	EventType   string
	Record      checkout.Record
	Status      Status
	RetryCount  int
	MaxRetries  int
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// NewResolvedEntry queues the outcome of a resolved attempt.
func NewResolvedEntry(attemptID uuid.UUID, rec checkout.Record, maxRetries int, now time.Time) *Entry {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Entry{
		ID:         uuid.New(),
		AttemptID:  attemptID,
		EventType:  EventCheckoutResolved,
		Record:     rec,
		Status:     StatusPending,
		MaxRetries: maxRetries,
		CreatedAt:  now,
	}
}

// Exhausted reports whether one more failed publish gives the entry up.
func (e *Entry) Exhausted() bool {
	return e.RetryCount+1 >= e.MaxRetries
}
