package testutil

import (
	"time"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	"github.com/google/uuid"
)

// NewTestRequest returns a minimal request that passes validation.
func NewTestRequest() checkout.PaymentRequest {
	return checkout.PaymentRequest{
		Key:              "rzp_test_k1",
		AmountMinorUnits: 50000,
		Currency:         "INR",
		Name:             "Acme",
	}
}

// NewFullTestRequest returns a request with every optional group set.
func NewFullTestRequest() checkout.PaymentRequest {
	req := NewTestRequest()
	req.OrderID = "order_9A33XWu170gUtm"
	req.Description = "Test Transaction"
	req.Image = "https://example.com/logo.png"
	req.Prefill = &checkout.Prefill{Name: "Gaurav Kumar", Email: "gaurav@example.com", Contact: "9000090000"}
	req.Theme = &checkout.Theme{Color: "#3399cc"}
	req.Modal = &checkout.Modal{Escape: checkout.Bool(false)}
	req.Readonly = &checkout.Readonly{Email: true}
	req.Notes = map[string]any{"address": "Corporate Office"}
	return req
}

func NewTestAttempt(req checkout.PaymentRequest) *checkout.Attempt {
	return checkout.NewAttempt(uuid.New(), req, time.Now().UTC())
}
