package checkout

// Payload is the flattened option map handed to a checkout provider.
// Its keys follow the provider's schema exactly.
type Payload map[string]any

// Payload keys.
const (
	KeyKey         = "key"
	KeyAmount      = "amount"
	KeyCurrency    = "currency"
	KeyName        = "name"
	KeyOrderID     = "order_id"
	KeyDescription = "description"
	KeyImage       = "image"
	KeyPrefill     = "prefill"
	KeyTheme       = "theme"
	KeyModal       = "modal"
	KeyReadonly    = "readonly"
	KeyNotes       = "notes"
)

// Payload flattens the request into the provider schema. Optional scalars are
// written only when set and optional groups only when present.
func (r PaymentRequest) Payload() Payload {
	p := Payload{
		KeyKey:      r.Key,
		KeyAmount:   r.AmountMinorUnits,
		KeyCurrency: r.EffectiveCurrency(),
		KeyName:     r.Name,
	}
	putString(p, KeyOrderID, r.OrderID)
	putString(p, KeyDescription, r.Description)
	putString(p, KeyImage, r.Image)

	if r.Prefill != nil {
		prefill := map[string]any{}
		putString(prefill, "name", r.Prefill.Name)
		putString(prefill, "email", r.Prefill.Email)
		putString(prefill, "contact", r.Prefill.Contact)
		p[KeyPrefill] = prefill
	}

	if r.Theme != nil {
		theme := map[string]any{}
		putString(theme, "color", r.Theme.Color)
		putString(theme, "backdrop_color", r.Theme.BackdropColor)
		p[KeyTheme] = theme
	}

	if r.Modal != nil {
		p[KeyModal] = map[string]any{
			"backdrop_close": boolOr(r.Modal.BackdropClose, true),
			"escape":         boolOr(r.Modal.Escape, true),
			"handleback":     boolOr(r.Modal.HandleBack, true),
			"confirm_close":  boolOr(r.Modal.ConfirmClose, false),
		}
	}

	if r.Readonly != nil {
		p[KeyReadonly] = map[string]any{
			"email":   r.Readonly.Email,
			"contact": r.Readonly.Contact,
			"name":    r.Readonly.Name,
		}
	}

	if r.Notes != nil {
		notes := make(map[string]any, len(r.Notes))
		for k, v := range r.Notes {
			notes[k] = v
		}
		p[KeyNotes] = notes
	}

	return p
}

// String returns the value stored under key when it is a string.
func (p Payload) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Amount returns the amount in minor units.
func (p Payload) Amount() int64 {
	v, _ := p[KeyAmount].(int64)
	return v
}

func putString(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// Bool returns a pointer to b, for building Modal options.
func Bool(b bool) *bool {
	return &b
}
