package controller

import (
	"encoding/json"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
)

// --- Request DTOs ---
// JSON shapes use the provider's snake_case option names. Business rules live
// in checkout.PaymentRequest.Validate; tags here only reject obviously broken input.

// CreateCheckoutRequest is the body of POST /api/v1/checkout.
type CreateCheckoutRequest struct {
	Key         string         `json:"key" validate:"required"`
	Amount      int64          `json:"amount" validate:"gte=0"`
	Currency    string         `json:"currency,omitempty"`
	OrderID     string         `json:"order_id,omitempty"`
	Name        string         `json:"name" validate:"required"`
	Description string         `json:"description,omitempty"`
	Image       string         `json:"image,omitempty"`
	Prefill     *PrefillDTO    `json:"prefill,omitempty"`
	Notes       map[string]any `json:"notes,omitempty"`
	Theme       *ThemeDTO      `json:"theme,omitempty"`
	Modal       *ModalDTO      `json:"modal,omitempty"`
	Readonly    *ReadonlyDTO   `json:"readonly,omitempty"`
}

type PrefillDTO struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

type ThemeDTO struct {
	Color         string `json:"color,omitempty"`
	BackdropColor string `json:"backdrop_color,omitempty"`
}

type ModalDTO struct {
	BackdropClose *bool `json:"backdrop_close,omitempty"`
	Escape        *bool `json:"escape,omitempty"`
	HandleBack    *bool `json:"handleback,omitempty"`
	ConfirmClose  *bool `json:"confirm_close,omitempty"`
}

type ReadonlyDTO struct {
	Email   bool `json:"email"`
	Contact bool `json:"contact"`
	Name    bool `json:"name"`
}

// SuccessCallbackRequest is reported by the host surface on payment success.
type SuccessCallbackRequest struct {
	AttemptID string `json:"attempt_id,omitempty" validate:"omitempty,uuid"`
	PaymentID string `json:"payment_id" validate:"required"`
	OrderID   string `json:"order_id,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// ErrorCallbackRequest carries the provider's code and raw error payload.
// Payload may be a JSON object or a string holding anything at all.
type ErrorCallbackRequest struct {
	AttemptID string          `json:"attempt_id,omitempty" validate:"omitempty,uuid"`
	Code      any             `json:"code"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// CancelCallbackRequest is reported when the customer dismisses the checkout.
type CancelCallbackRequest struct {
	AttemptID string `json:"attempt_id,omitempty" validate:"omitempty,uuid"`
}

// --- Response DTOs ---

// AttemptResponse represents a checkout attempt in API responses.
type AttemptResponse struct {
	ID         string           `json:"id"`
	OrderID    string           `json:"order_id,omitempty"`
	Name       string           `json:"name"`
	Amount     int64            `json:"amount"`
	Currency   string           `json:"currency"`
	Status     string           `json:"status"`
	Result     *checkout.Record `json:"result,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
}

// CallbackResponse reports whether a callback settled the pending checkout.
type CallbackResponse struct {
	Settled bool `json:"settled"`
}

// VersionResponse carries the provider SDK version.
type VersionResponse struct {
	Version  string `json:"version"`
	Provider string `json:"provider"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// ToPaymentRequest converts the HTTP body to the domain request.
func (r CreateCheckoutRequest) ToPaymentRequest() checkout.PaymentRequest {
	req := checkout.PaymentRequest{
		Key:              r.Key,
		AmountMinorUnits: r.Amount,
		Currency:         r.Currency,
		OrderID:          r.OrderID,
		Name:             r.Name,
		Description:      r.Description,
		Image:            r.Image,
		Notes:            r.Notes,
	}
	if p := r.Prefill; p != nil {
		req.Prefill = &checkout.Prefill{Name: p.Name, Email: p.Email, Contact: p.Contact}
	}
	if t := r.Theme; t != nil {
		req.Theme = &checkout.Theme{Color: t.Color, BackdropColor: t.BackdropColor}
	}
	if m := r.Modal; m != nil {
		req.Modal = &checkout.Modal{
			BackdropClose: m.BackdropClose,
			Escape:        m.Escape,
			HandleBack:    m.HandleBack,
			ConfirmClose:  m.ConfirmClose,
		}
	}
	if ro := r.Readonly; ro != nil {
		req.Readonly = &checkout.Readonly{Email: ro.Email, Contact: ro.Contact, Name: ro.Name}
	}
	return req
}

// FromAttempt converts a domain attempt to API response.
func FromAttempt(a *checkout.Attempt) *AttemptResponse {
	return &AttemptResponse{
		ID:         a.ID.String(),
		OrderID:    a.OrderID,
		Name:       a.MerchantName,
		Amount:     a.AmountMinorUnits,
		Currency:   a.Currency,
		Status:     string(a.Status),
		Result:     a.Result,
		CreatedAt:  a.CreatedAt,
		ResolvedAt: a.ResolvedAt,
	}
}
