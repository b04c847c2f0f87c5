package checkout

import (
	"fmt"
	"strings"

	"github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/go-playground/validator/v10"
)

// DefaultCurrency is used when a request leaves the currency empty.
const DefaultCurrency = "INR"

var validate = validator.New(validator.WithRequiredStructEnabled())

// PaymentRequest is the caller-supplied description of one checkout.
// Amounts are in the smallest currency unit (paise for INR).
type PaymentRequest struct {
	Key              string         `validate:"required"`
	AmountMinorUnits int64          `validate:"gte=0"`
	Currency         string         `validate:"omitempty,len=3,uppercase"`
	OrderID          string
	Name             string         `validate:"required"`
	Description      string
	Image            string
	Prefill          *Prefill
	Notes            map[string]any
	Theme            *Theme
	Modal            *Modal
	Readonly         *Readonly
}

// Prefill carries customer details shown pre-filled in the checkout form.
type Prefill struct {
	Name    string
	Email   string `validate:"omitempty,email"`
	Contact string
}

// Theme customises the checkout colours.
type Theme struct {
	Color         string
	BackdropColor string
}

// Modal controls how the checkout surface may be dismissed.
// Nil fields take the provider defaults: true, true, true, false.
type Modal struct {
	BackdropClose *bool
	Escape        *bool
	HandleBack    *bool
	ConfirmClose  *bool
}

// Readonly marks prefilled fields the customer cannot edit.
type Readonly struct {
	Email   bool
	Contact bool
	Name    bool
}

// EffectiveCurrency returns the request currency or DefaultCurrency.
func (r PaymentRequest) EffectiveCurrency() string {
	if r.Currency == "" {
		return DefaultCurrency
	}
	return r.Currency
}

// Validate checks the request before anything is dispatched.
func (r PaymentRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return errors.NewValidationError(fieldName(ve[0]), ve[0].Tag()+" validation failed")
		}
		return errors.NewValidationError("request", err.Error())
	}
	if strings.TrimSpace(r.Key) == "" {
		return errors.NewValidationError("key", "cannot be blank")
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.NewValidationError("name", "cannot be blank")
	}
	for k, v := range r.Notes {
		if !isScalar(v) {
			return errors.NewValidationError("notes."+k, fmt.Sprintf("must be a scalar, got %T", v))
		}
	}
	return nil
}

func fieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return toSnake(ns)
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '.':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			if i > 0 && s[i-1] != '.' {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}
