package outbox

import (
	"testing"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewResolvedEntry(t *testing.T) {
	attemptID := uuid.New()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := checkout.ToRecord(checkout.Success{PaymentID: "pay_1"})

	e := NewResolvedEntry(attemptID, rec, 3, now)

	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, attemptID, e.AttemptID)
	assert.Equal(t, EventCheckoutResolved, e.EventType)
	assert.Equal(t, rec, e.Record)
	assert.Equal(t, StatusPending, e.Status)
	assert.Equal(t, 0, e.RetryCount)
	assert.Equal(t, 3, e.MaxRetries)
	assert.Equal(t, now, e.CreatedAt)
	assert.Nil(t, e.PublishedAt)
}

func TestNewResolvedEntry_DefaultMaxRetries(t *testing.T) {
	e := NewResolvedEntry(uuid.New(), checkout.ToRecord(checkout.Cancelled{}), 0, time.Now())
	assert.Equal(t, DefaultMaxRetries, e.MaxRetries)
}

func TestEntry_Exhausted(t *testing.T) {
	e := &Entry{MaxRetries: 3}

	e.RetryCount = 1
	assert.False(t, e.Exhausted())

	e.RetryCount = 2
	assert.True(t, e.Exhausted())
}
