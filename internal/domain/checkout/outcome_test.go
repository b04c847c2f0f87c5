package checkout_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	"github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome_Status(t *testing.T) {
	assert.Equal(t, checkout.StatusSuccess, checkout.Success{PaymentID: "pay_1"}.Status())
	assert.Equal(t, checkout.StatusError, checkout.Failure{}.Status())
	assert.Equal(t, checkout.StatusCancelled, checkout.Cancelled{}.Status())
}

func TestToRecord(t *testing.T) {
	tests := []struct {
		name    string
		outcome checkout.Outcome
		want    checkout.Record
	}{
		{
			name:    "success",
			outcome: checkout.Success{PaymentID: "pay_abc", OrderID: "order_1", Signature: "sig"},
			want:    checkout.Record{Status: checkout.StatusSuccess, PaymentID: "pay_abc", OrderID: "order_1", Signature: "sig"},
		},
		{
			name:    "failure",
			outcome: checkout.Failure{Error: checkout.PaymentError{Code: "400", Description: "not json"}},
			want: checkout.Record{Status: checkout.StatusError, Error: &checkout.PaymentError{
				Code: "400", Description: "not json",
			}},
		},
		{
			name:    "cancelled",
			outcome: checkout.Cancelled{},
			want:    checkout.Record{Status: checkout.StatusCancelled},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := checkout.ToRecord(tt.outcome)
			assert.Equal(t, tt.want, rec)
			assert.Equal(t, tt.outcome, rec.Outcome())
		})
	}
}

func TestToRecord_NilOutcomeIsFailure(t *testing.T) {
	rec := checkout.ToRecord(nil)

	assert.Equal(t, checkout.StatusError, rec.Status)
	require.NotNil(t, rec.Error)
	assert.Equal(t, checkout.UnknownCode, rec.Error.Code)
	assert.Equal(t, checkout.DefaultFailureDescription, rec.Error.Description)
}

func TestAttempt_ResolveNilOutcome(t *testing.T) {
	a := checkout.NewAttempt(uuid.New(), validRequest(), time.Now())

	require.NoError(t, a.Resolve(nil, time.Now()))
	assert.Equal(t, checkout.AttemptFailed, a.Status)
	assert.Equal(t, checkout.StatusError, a.Result.Status)
}

func TestRecord_JSONOmitsAbsentFields(t *testing.T) {
	b, err := json.Marshal(checkout.ToRecord(checkout.Success{PaymentID: "pay_abc"}))
	require.NoError(t, err)

	assert.JSONEq(t, `{"status":"success","payment_id":"pay_abc"}`, string(b))
}

func TestRecord_OutcomeWithoutErrorDetails(t *testing.T) {
	o := checkout.Record{Status: "weird"}.Outcome()

	f, ok := o.(checkout.Failure)
	require.True(t, ok)
	assert.Equal(t, checkout.UnknownCode, f.Error.Code)
	assert.Equal(t, checkout.DefaultFailureDescription, f.Error.Description)
}

func TestAttempt_Resolve(t *testing.T) {
	now := time.Now()
	a := checkout.NewAttempt(uuid.New(), validRequest(), now)
	assert.True(t, a.IsPending())
	assert.Equal(t, "INR", a.Currency)
	assert.Equal(t, "Acme", a.MerchantName)

	require.NoError(t, a.Resolve(checkout.Success{PaymentID: "pay_1"}, now.Add(time.Second)))
	assert.Equal(t, checkout.AttemptSucceeded, a.Status)
	require.NotNil(t, a.Result)
	assert.Equal(t, "pay_1", a.Result.PaymentID)
	require.NotNil(t, a.ResolvedAt)
	assert.False(t, a.IsPending())

	err := a.Resolve(checkout.Cancelled{}, now)
	assert.ErrorIs(t, err, errors.ErrAttemptAlreadyResolved)
	assert.Equal(t, checkout.AttemptSucceeded, a.Status)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, checkout.AttemptSucceeded, checkout.StatusFor(checkout.Success{}))
	assert.Equal(t, checkout.AttemptFailed, checkout.StatusFor(checkout.Failure{}))
	assert.Equal(t, checkout.AttemptCancelled, checkout.StatusFor(checkout.Cancelled{}))
}
