package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/sheet"
	"github.com/google/uuid"
)

// Error codes the sandbox reports, matching the native checkout SDK.
const (
	SandboxCancelCode  = 0
	SandboxFailureCode = 2
)

const (
	sandboxFailurePayload = `{"error":{"code":"BAD_REQUEST_ERROR","description":"Payment failed due to a simulated bank decline","source":"bank","step":"payment_authorization","reason":"payment_failed"}}`
	sandboxCancelPayload  = `{"error":{"code":"BAD_REQUEST_ERROR","description":"Payment processing cancelled by user","source":"customer","step":"payment_authentication","reason":"payment_cancelled"}}`
)

// SandboxProvider presents checkouts on a local sheet and settles them after a
// delay with a randomly chosen verdict. A user dismissal of the sheet cancels.
type SandboxProvider struct {
	name          string
	version       string
	surface       *sheet.Sheet
	latency       time.Duration
	failureRate   float64 // 0.0 to 1.0
	cancelRate    float64 // 0.0 to 1.0
	signingSecret string
	roll          func() float64
}

type SandboxOption func(*SandboxProvider)

func WithFailureRate(rate float64) SandboxOption {
	return func(p *SandboxProvider) { p.failureRate = rate }
}

func WithCancelRate(rate float64) SandboxOption {
	return func(p *SandboxProvider) { p.cancelRate = rate }
}

func WithLatency(d time.Duration) SandboxOption {
	return func(p *SandboxProvider) { p.latency = d }
}

func WithSigningSecret(secret string) SandboxOption {
	return func(p *SandboxProvider) { p.signingSecret = secret }
}

func WithSurface(s *sheet.Sheet) SandboxOption {
	return func(p *SandboxProvider) { p.surface = s }
}

func WithVersion(v string) SandboxOption {
	return func(p *SandboxProvider) { p.version = v }
}

func NewSandboxProvider(name string, opts ...SandboxOption) *SandboxProvider {
	p := &SandboxProvider{
		name:    name,
		version: "sandbox",
		surface: sheet.New(),
		latency: 100 * time.Millisecond,
		roll:    rand.Float64,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *SandboxProvider) Name() string    { return p.name }
func (p *SandboxProvider) Version() string { return p.version }

// Surface returns the sheet checkouts are presented on.
func (p *SandboxProvider) Surface() *sheet.Sheet { return p.surface }

func (p *SandboxProvider) Open(ctx context.Context, req OpenRequest, cb Callbacks) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.surface.SetVisible(true) {
		return fmt.Errorf("%s: %w", p.name, domainErrors.ErrSurfaceBusy)
	}
	p.surface.SetTitle(req.Payload.String(checkout.KeyName))
	p.surface.SetContent(describe(req.Payload))

	var once sync.Once
	finish := func(fn func()) {
		once.Do(func() {
			p.surface.OnDismiss(nil)
			p.surface.SetVisible(false)
			fn()
		})
	}
	p.surface.OnDismiss(func() { finish(cb.OnCancel) })

	go func() {
		time.Sleep(p.latency)

		roll := p.roll()
		switch {
		case roll < p.cancelRate:
			finish(func() { cb.OnError(SandboxCancelCode, sandboxCancelPayload) })
		case roll < p.cancelRate+p.failureRate:
			finish(func() { cb.OnError(SandboxFailureCode, sandboxFailurePayload) })
		default:
			data := p.success(req.Payload)
			finish(func() { cb.OnSuccess(data) })
		}
	}()

	return nil
}

func (p *SandboxProvider) success(payload checkout.Payload) checkout.SuccessData {
	data := checkout.SuccessData{
		PaymentID: "pay_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:14],
		OrderID:   payload.String(checkout.KeyOrderID),
	}
	if p.signingSecret != "" && data.OrderID != "" {
		data.Signature = Sign(p.signingSecret, data.OrderID, data.PaymentID)
	}
	return data
}

// Sign computes the checkout signature: hex HMAC-SHA256 of "order_id|payment_id".
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func describe(payload checkout.Payload) string {
	amount := payload.Amount()
	text := fmt.Sprintf("Pay %d.%02d %s", amount/100, amount%100, payload.String(checkout.KeyCurrency))
	if d := payload.String(checkout.KeyDescription); d != "" {
		text += " · " + d
	}
	return text
}
