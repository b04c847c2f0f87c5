package providers

import (
	"context"
	"fmt"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
)

// OpenPublisher hands an open request to the remote surface that hosts the checkout.
type OpenPublisher interface {
	PublishOpen(ctx context.Context, attemptID string, payload checkout.Payload) error
}

// HostedProvider dispatches checkouts to a remote host surface through a
// publisher. The host reports back over the callback API, so the Callbacks
// passed to Open are not retained here.
type HostedProvider struct {
	name      string
	version   string
	publisher OpenPublisher
}

func NewHostedProvider(name, version string, publisher OpenPublisher) *HostedProvider {
	return &HostedProvider{name: name, version: version, publisher: publisher}
}

func (p *HostedProvider) Name() string    { return p.name }
func (p *HostedProvider) Version() string { return p.version }

func (p *HostedProvider) Open(ctx context.Context, req OpenRequest, _ Callbacks) error {
	if err := p.publisher.PublishOpen(ctx, req.AttemptID.String(), req.Payload); err != nil {
		return fmt.Errorf("%s: publish open request: %w", p.name, err)
	}
	return nil
}
