package outbox

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Insert creates a new outbox entry (typically inside a transaction)
	Insert(ctx context.Context, entry *Entry) error

	// GetPending returns pending entries oldest first, locking them for the
	// surrounding transaction
	GetPending(ctx context.Context, limit int) ([]*Entry, error)

	// MarkPublished marks an entry as published
	MarkPublished(ctx context.Context, id uuid.UUID) error

	// MarkFailed increments the retry count and gives the entry up once it
	// reaches its max retries
	MarkFailed(ctx context.Context, id uuid.UUID) error
}
