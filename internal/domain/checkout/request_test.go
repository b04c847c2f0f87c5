package checkout_test

import (
	"testing"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	"github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() checkout.PaymentRequest {
	return checkout.PaymentRequest{
		Key:              "rzp_test_k1",
		AmountMinorUnits: 50000,
		Currency:         "INR",
		Name:             "Acme",
	}
}

func TestPaymentRequest_Validate_Valid(t *testing.T) {
	assert.NoError(t, validRequest().Validate())
}

func TestPaymentRequest_Validate_ZeroAmountAllowed(t *testing.T) {
	req := validRequest()
	req.AmountMinorUnits = 0
	assert.NoError(t, req.Validate())
}

func TestPaymentRequest_Validate_Failures(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(r *checkout.PaymentRequest)
		field string
	}{
		{"empty key", func(r *checkout.PaymentRequest) { r.Key = "" }, "key"},
		{"blank key", func(r *checkout.PaymentRequest) { r.Key = "   " }, "key"},
		{"empty name", func(r *checkout.PaymentRequest) { r.Name = "" }, "name"},
		{"blank name", func(r *checkout.PaymentRequest) { r.Name = "\t" }, "name"},
		{"negative amount", func(r *checkout.PaymentRequest) { r.AmountMinorUnits = -1 }, "amount_minor_units"},
		{"short currency", func(r *checkout.PaymentRequest) { r.Currency = "IN" }, "currency"},
		{"lower-case currency", func(r *checkout.PaymentRequest) { r.Currency = "inr" }, "currency"},
		{"bad prefill email", func(r *checkout.PaymentRequest) {
			r.Prefill = &checkout.Prefill{Email: "not-an-email"}
		}, "prefill.email"},
		{"non-scalar note", func(r *checkout.PaymentRequest) {
			r.Notes = map[string]any{"address": map[string]any{"city": "Pune"}}
		}, "notes.address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mut(&req)

			err := req.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrValidationFailed)

			var ve *errors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestPaymentRequest_Validate_ScalarNotes(t *testing.T) {
	req := validRequest()
	req.Notes = map[string]any{
		"address":           "Test Address",
		"merchant_order_id": "TEST_ORDER_123",
		"priority":          2,
		"express":           true,
		"weight":            1.5,
		"coupon":            nil,
	}
	assert.NoError(t, req.Validate())
}

func TestPaymentRequest_EffectiveCurrency(t *testing.T) {
	req := validRequest()
	req.Currency = ""
	assert.Equal(t, checkout.DefaultCurrency, req.EffectiveCurrency())

	req.Currency = "USD"
	assert.Equal(t, "USD", req.EffectiveCurrency())
}
