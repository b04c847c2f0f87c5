package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/outbox"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const attemptColumns = `id, order_id, merchant_name, amount_minor_units, currency, status, result, created_at, resolved_at`

// AttemptRepository implements checkout.AttemptRepository using PostgreSQL.
// Storing an outcome also queues it on the outbox in the same transaction.
type AttemptRepository struct {
	pool             Pool
	tx               *TxManager
	outbox           *OutboxRepository
	outboxMaxRetries int
}

var _ checkout.AttemptRepository = (*AttemptRepository)(nil)

// NewAttemptRepository creates the repository. outboxMaxRetries bounds how
// often a queued outcome is retried; zero means outbox.DefaultMaxRetries.
func NewAttemptRepository(pool Pool, outboxMaxRetries int) *AttemptRepository {
	return &AttemptRepository{
		pool:             pool,
		tx:               NewTxManager(pool),
		outbox:           NewOutboxRepository(pool),
		outboxMaxRetries: outboxMaxRetries,
	}
}

func (r *AttemptRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Create inserts an attempt. An attempt that is already resolved, because
// its pending insert failed earlier, has its outcome queued as well.
func (r *AttemptRepository) Create(ctx context.Context, a *checkout.Attempt) error {
	result, err := encodeResult(a.Result)
	if err != nil {
		return err
	}

	return r.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		_, err := r.db(txCtx).Exec(txCtx,
			`INSERT INTO checkout_attempts (`+attemptColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			a.ID, nullable(a.OrderID), a.MerchantName, a.AmountMinorUnits, a.Currency,
			string(a.Status), result, a.CreatedAt, a.ResolvedAt,
		)
		if err != nil {
			return fmt.Errorf("insert checkout attempt: %w", err)
		}
		return r.queueOutcome(txCtx, a)
	})
}

// Resolve stores the outcome of a pending attempt. The row is locked first so
// two writers cannot both resolve it.
func (r *AttemptRepository) Resolve(ctx context.Context, a *checkout.Attempt) error {
	result, err := encodeResult(a.Result)
	if err != nil {
		return err
	}

	return r.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var status string
		err := r.db(txCtx).QueryRow(txCtx,
			`SELECT status FROM checkout_attempts WHERE id = $1 FOR UPDATE`, a.ID,
		).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrAttemptNotFound
			}
			return fmt.Errorf("lock checkout attempt: %w", err)
		}
		if checkout.AttemptStatus(status) != checkout.AttemptPending {
			return domainErrors.ErrAttemptAlreadyResolved
		}

		_, err = r.db(txCtx).Exec(txCtx,
			`UPDATE checkout_attempts SET status = $1, result = $2, resolved_at = $3 WHERE id = $4`,
			string(a.Status), result, a.ResolvedAt, a.ID,
		)
		if err != nil {
			return fmt.Errorf("update checkout attempt: %w", err)
		}
		return r.queueOutcome(txCtx, a)
	})
}

func (r *AttemptRepository) queueOutcome(ctx context.Context, a *checkout.Attempt) error {
	if a.Result == nil || a.IsPending() {
		return nil
	}
	now := time.Now().UTC()
	if a.ResolvedAt != nil {
		now = *a.ResolvedAt
	}
	return r.outbox.Insert(ctx, outbox.NewResolvedEntry(a.ID, *a.Result, r.outboxMaxRetries, now))
}

// GetByID retrieves an attempt by its ID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*checkout.Attempt, error) {
	return scanAttempt(r.db(ctx).QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM checkout_attempts WHERE id = $1`, id))
}

func scanAttempt(row scanner) (*checkout.Attempt, error) {
	var (
		a          checkout.Attempt
		orderID    *string
		status     string
		result     []byte
		resolvedAt *time.Time
	)
	err := row.Scan(&a.ID, &orderID, &a.MerchantName, &a.AmountMinorUnits, &a.Currency,
		&status, &result, &a.CreatedAt, &resolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrAttemptNotFound
		}
		return nil, fmt.Errorf("scan checkout attempt: %w", err)
	}

	if orderID != nil {
		a.OrderID = *orderID
	}
	a.Status = checkout.AttemptStatus(status)
	a.ResolvedAt = resolvedAt
	if a.Result, err = decodeResult(result); err != nil {
		return nil, err
	}
	return &a, nil
}

func encodeResult(rec *checkout.Record) ([]byte, error) {
	if rec == nil {
		return nil, nil
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal attempt result: %w", err)
	}
	return b, nil
}

func decodeResult(b []byte) (*checkout.Record, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var rec checkout.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal attempt result: %w", err)
	}
	return &rec, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
