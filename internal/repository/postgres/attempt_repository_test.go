package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow copies its values into the scan destinations in order.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *uuid.UUID:
			*p = r.values[i].(uuid.UUID)
		case **string:
			*p, _ = r.values[i].(*string)
		case *string:
			*p = r.values[i].(string)
		case *int64:
			*p = r.values[i].(int64)
		case *int:
			*p = r.values[i].(int)
		case *[]byte:
			*p, _ = r.values[i].([]byte)
		case *time.Time:
			*p = r.values[i].(time.Time)
		case **time.Time:
			*p, _ = r.values[i].(*time.Time)
		default:
			return errors.New("unsupported destination")
		}
	}
	return nil
}

func TestScanAttempt_Pending(t *testing.T) {
	id := uuid.New()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	a, err := scanAttempt(fakeRow{values: []any{
		id, (*string)(nil), "Acme", int64(50000), "INR", "pending", []byte(nil), created, (*time.Time)(nil),
	}})

	require.NoError(t, err)
	assert.Equal(t, id, a.ID)
	assert.Empty(t, a.OrderID)
	assert.Equal(t, "Acme", a.MerchantName)
	assert.Equal(t, int64(50000), a.AmountMinorUnits)
	assert.Equal(t, checkout.AttemptPending, a.Status)
	assert.Nil(t, a.Result)
	assert.Nil(t, a.ResolvedAt)
	assert.True(t, a.IsPending())
}

func TestScanAttempt_Resolved(t *testing.T) {
	orderID := "order_1"
	resolved := time.Date(2024, 3, 1, 10, 1, 0, 0, time.UTC)

	a, err := scanAttempt(fakeRow{values: []any{
		uuid.New(), &orderID, "Acme", int64(100), "USD", "failed",
		[]byte(`{"status":"error","error":{"code":"2","description":"Card declined","reason":"card_declined"}}`),
		resolved.Add(-time.Minute), &resolved,
	}})

	require.NoError(t, err)
	assert.Equal(t, "order_1", a.OrderID)
	assert.Equal(t, checkout.AttemptFailed, a.Status)
	require.NotNil(t, a.Result)
	assert.Equal(t, checkout.Failure{Error: checkout.PaymentError{
		Code: "2", Description: "Card declined", Reason: "card_declined",
	}}, a.Result.Outcome())
	assert.Equal(t, resolved, *a.ResolvedAt)
}

func TestScanAttempt_NotFound(t *testing.T) {
	_, err := scanAttempt(fakeRow{err: pgx.ErrNoRows})
	assert.ErrorIs(t, err, domainErrors.ErrAttemptNotFound)
}

func TestScanAttempt_CorruptResult(t *testing.T) {
	_, err := scanAttempt(fakeRow{values: []any{
		uuid.New(), (*string)(nil), "Acme", int64(1), "INR", "succeeded", []byte(`{not json`),
		time.Now(), (*time.Time)(nil),
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal attempt result")
}

func TestEncodeResult(t *testing.T) {
	b, err := encodeResult(nil)
	require.NoError(t, err)
	assert.Nil(t, b)

	rec := checkout.ToRecord(checkout.Success{PaymentID: "pay_1", OrderID: "order_1", Signature: "abc"})
	b, err = encodeResult(&rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","payment_id":"pay_1","order_id":"order_1","signature":"abc"}`, string(b))

	back, err := decodeResult(b)
	require.NoError(t, err)
	assert.Equal(t, rec, *back)
}

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(""))
	require.NotNil(t, nullable("order_1"))
	assert.Equal(t, "order_1", *nullable("order_1"))
}
