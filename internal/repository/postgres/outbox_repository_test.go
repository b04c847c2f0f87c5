package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/outbox"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

// fakeTx answers the row lock with lockedStatus and records every Exec.
// Methods the repositories never call are left to the nil embedded Tx.
type fakeTx struct {
	pgx.Tx
	lockedStatus string
	failOn       string
	execs        []execCall
	committed    bool
	rolledBack   bool
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if t.lockedStatus == "" {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{values: []any{t.lockedStatus}}
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, execCall{sql: sql, args: args})
	if t.failOn != "" && strings.Contains(sql, t.failOn) {
		return pgconn.CommandTag{}, errors.New("connection reset")
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

func (t *fakeTx) statements() []string {
	var out []string
	for _, e := range t.execs {
		out = append(out, strings.Fields(e.sql)[0]+" "+tableOf(e.sql))
	}
	return out
}

func tableOf(sql string) string {
	for _, table := range []string{"checkout_attempts", "outbox"} {
		if strings.Contains(sql, table) {
			return table
		}
	}
	return ""
}

// fakePool hands out tx and fails any statement issued outside it.
type fakePool struct {
	tx *fakeTx
}

func (p *fakePool) Begin(ctx context.Context) (pgx.Tx, error) { return p.tx, nil }

func (p *fakePool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("query outside transaction")
}

func (p *fakePool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return fakeRow{err: errors.New("query outside transaction")}
}

func (p *fakePool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("exec outside transaction")
}

func resolvedAttempt(t *testing.T, o checkout.Outcome) *checkout.Attempt {
	t.Helper()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	a := checkout.NewAttempt(uuid.New(), checkout.PaymentRequest{Name: "Acme", AmountMinorUnits: 50000}, now)
	require.NoError(t, a.Resolve(o, now.Add(time.Minute)))
	return a
}

func TestAttemptRepository_ResolveQueuesOutcomeInSameTransaction(t *testing.T) {
	tx := &fakeTx{lockedStatus: "pending"}
	repo := NewAttemptRepository(&fakePool{tx: tx}, 3)
	a := resolvedAttempt(t, checkout.Success{PaymentID: "pay_1"})

	require.NoError(t, repo.Resolve(context.Background(), a))

	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
	require.Equal(t, []string{"UPDATE checkout_attempts", "INSERT outbox"}, tx.statements())

	args := tx.execs[1].args
	assert.Equal(t, a.ID, args[1])
	assert.Equal(t, outbox.EventCheckoutResolved, args[2])
	assert.JSONEq(t, `{"status":"success","payment_id":"pay_1"}`, string(args[3].([]byte)))
	assert.Equal(t, string(outbox.StatusPending), args[4])
	assert.Equal(t, 3, args[6])
	assert.Equal(t, *a.ResolvedAt, args[7])
}

func TestAttemptRepository_ResolveRollsBackWhenOutboxInsertFails(t *testing.T) {
	tx := &fakeTx{lockedStatus: "pending", failOn: "INSERT INTO outbox"}
	repo := NewAttemptRepository(&fakePool{tx: tx}, 3)

	err := repo.Resolve(context.Background(), resolvedAttempt(t, checkout.Cancelled{}))

	assert.ErrorContains(t, err, "insert outbox entry")
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestAttemptRepository_ResolveAlreadyResolvedQueuesNothing(t *testing.T) {
	tx := &fakeTx{lockedStatus: "succeeded"}
	repo := NewAttemptRepository(&fakePool{tx: tx}, 3)

	err := repo.Resolve(context.Background(), resolvedAttempt(t, checkout.Cancelled{}))

	assert.ErrorIs(t, err, domainErrors.ErrAttemptAlreadyResolved)
	assert.Empty(t, tx.execs)
	assert.True(t, tx.rolledBack)
}

func TestAttemptRepository_CreatePendingQueuesNothing(t *testing.T) {
	tx := &fakeTx{}
	repo := NewAttemptRepository(&fakePool{tx: tx}, 3)
	a := checkout.NewAttempt(uuid.New(), checkout.PaymentRequest{Name: "Acme", AmountMinorUnits: 100}, time.Now())

	require.NoError(t, repo.Create(context.Background(), a))

	assert.Equal(t, []string{"INSERT checkout_attempts"}, tx.statements())
	assert.True(t, tx.committed)
}

func TestAttemptRepository_CreateResolvedQueuesOutcome(t *testing.T) {
	tx := &fakeTx{}
	repo := NewAttemptRepository(&fakePool{tx: tx}, 0)

	require.NoError(t, repo.Create(context.Background(), resolvedAttempt(t, checkout.Cancelled{})))

	require.Equal(t, []string{"INSERT checkout_attempts", "INSERT outbox"}, tx.statements())
	assert.Equal(t, outbox.DefaultMaxRetries, tx.execs[1].args[6])
}

func TestScanOutboxEntry(t *testing.T) {
	id, attemptID := uuid.New(), uuid.New()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	payload, err := json.Marshal(checkout.ToRecord(checkout.Failure{Error: checkout.PaymentError{Code: "2", Description: "Card declined"}}))
	require.NoError(t, err)

	e, err := scanOutboxEntry(fakeRow{values: []any{
		id, attemptID, outbox.EventCheckoutResolved, payload, "pending", 1, 5, created, (*time.Time)(nil),
	}})

	require.NoError(t, err)
	assert.Equal(t, id, e.ID)
	assert.Equal(t, attemptID, e.AttemptID)
	assert.Equal(t, outbox.StatusPending, e.Status)
	assert.Equal(t, 1, e.RetryCount)
	assert.Equal(t, 5, e.MaxRetries)
	assert.Equal(t, checkout.StatusError, e.Record.Status)
	require.NotNil(t, e.Record.Error)
	assert.Equal(t, "Card declined", e.Record.Error.Description)
	assert.Nil(t, e.PublishedAt)
}

func TestScanOutboxEntry_CorruptPayload(t *testing.T) {
	_, err := scanOutboxEntry(fakeRow{values: []any{
		uuid.New(), uuid.New(), outbox.EventCheckoutResolved, []byte(`{not json`), "pending", 0, 5, time.Now(), (*time.Time)(nil),
	}})
	assert.ErrorContains(t, err, "unmarshal outbox payload")
}
