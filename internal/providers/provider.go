package providers

import (
	"context"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	"github.com/google/uuid"
)

// OpenRequest is one checkout handed to a provider.
type OpenRequest struct {
	AttemptID uuid.UUID
	Payload   checkout.Payload
}

// Callbacks receives the provider's verdict. A provider invokes at most one
// of them per Open, asynchronously and from any goroutine.
type Callbacks interface {
	OnSuccess(data checkout.SuccessData)
	// OnError receives the provider's error code (integer or string) and its
	// raw, possibly malformed payload.
	OnError(code any, raw any)
	OnCancel()
}

type CheckoutProvider interface {
	// Name returns the provider name.
	Name() string
	// Version returns the provider SDK version.
	Version() string
	// Open presents the checkout. An error means nothing was presented and no
	// callback will follow.
	Open(ctx context.Context, req OpenRequest, cb Callbacks) error
}
