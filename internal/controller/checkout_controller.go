package controller

import (
	"net/http"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/middleware"
	"github.com/cassiomorais/checkout/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CheckoutController handles checkout-related HTTP requests.
type CheckoutController struct {
	checkoutService *service.CheckoutService
}

// NewCheckoutController creates a new CheckoutController.
func NewCheckoutController(checkoutService *service.CheckoutService) *CheckoutController {
	return &CheckoutController{checkoutService: checkoutService}
}

// StartCheckout handles POST /api/v1/checkout
func (h *CheckoutController) StartCheckout(w http.ResponseWriter, r *http.Request) {
	var req CreateCheckoutRequest
	if err := decodeAndValidate(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	attempt, err := h.checkoutService.StartCheckout(r.Context(), req.ToPaymentRequest())
	if err != nil {
		writeError(w, r, err)
		return
	}

	if sub, ok := middleware.GetSubject(r.Context()); ok {
		zerolog.Ctx(r.Context()).Info().
			Str("subject", sub).
			Str("attempt_id", attempt.ID.String()).
			Msg("checkout requested")
	}

	w.Header().Set("Location", "/api/v1/checkout/"+attempt.ID.String())
	writeJSON(w, http.StatusAccepted, FromAttempt(attempt))
}

// GetAttempt handles GET /api/v1/checkout/{id}?wait=5s
func (h *CheckoutController) GetAttempt(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, domainErrors.NewValidationError("id", "must be a UUID"))
		return
	}

	var wait time.Duration
	if raw := r.URL.Query().Get("wait"); raw != "" {
		wait, err = time.ParseDuration(raw)
		if err != nil || wait < 0 {
			writeError(w, r, domainErrors.NewValidationError("wait", "must be a non-negative duration such as 5s"))
			return
		}
	}

	attempt, err := h.checkoutService.GetAttempt(r.Context(), id, wait)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FromAttempt(attempt))
}

// Version handles GET /api/v1/checkout/version
func (h *CheckoutController) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version:  h.checkoutService.Version(),
		Provider: h.checkoutService.ProviderName(),
	})
}

// ReportSuccess handles POST /api/v1/checkout/callbacks/success
func (h *CheckoutController) ReportSuccess(w http.ResponseWriter, r *http.Request) {
	var req SuccessCallbackRequest
	if err := decodeAndValidate(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	settled := h.checkoutService.ReportSuccess(parseAttemptID(req.AttemptID), checkout.SuccessData{
		PaymentID: req.PaymentID,
		OrderID:   req.OrderID,
		Signature: req.Signature,
	})
	writeJSON(w, http.StatusAccepted, CallbackResponse{Settled: settled})
}

// ReportError handles POST /api/v1/checkout/callbacks/error
func (h *CheckoutController) ReportError(w http.ResponseWriter, r *http.Request) {
	var req ErrorCallbackRequest
	if err := decodeAndValidate(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	var raw any
	if len(req.Payload) > 0 {
		raw = req.Payload
	}
	settled := h.checkoutService.ReportError(parseAttemptID(req.AttemptID), req.Code, raw)
	writeJSON(w, http.StatusAccepted, CallbackResponse{Settled: settled})
}

// ReportCancel handles POST /api/v1/checkout/callbacks/cancel
func (h *CheckoutController) ReportCancel(w http.ResponseWriter, r *http.Request) {
	var req CancelCallbackRequest
	if err := decodeAndValidate(r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}

	settled := h.checkoutService.ReportCancel(parseAttemptID(req.AttemptID))
	writeJSON(w, http.StatusAccepted, CallbackResponse{Settled: settled})
}

// parseAttemptID returns nil for an empty ID. Callers validate the format first.
func parseAttemptID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
