// Package relay forwards provider verdicts published by a hosted checkout
// surface on a Redis stream to the checkout service, and publishes recorded
// outcomes from the outbox.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Message kinds carried in the "kind" field.
const (
	KindSuccess = "success"
	KindError   = "error"
	KindCancel  = "cancel"
)

const defaultReadBackoff = time.Second

// Reporter is implemented by service.CheckoutService.
type Reporter interface {
	ReportSuccess(attemptID *uuid.UUID, data checkout.SuccessData) bool
	ReportError(attemptID *uuid.UUID, code any, raw any) bool
	ReportCancel(attemptID *uuid.UUID) bool
}

// Consumer is implemented by redis.StreamConsumer.
type Consumer interface {
	Stream() string
	CreateGroup(ctx context.Context) error
	Read(ctx context.Context) ([]redis.XMessage, error)
	Ack(ctx context.Context, messageID string) error
}

// CallbackRelay reads callback messages and reports them.
type CallbackRelay struct {
	consumer    Consumer
	reporter    Reporter
	logger      zerolog.Logger
	readBackoff time.Duration
}

func NewCallbackRelay(consumer Consumer, reporter Reporter, logger zerolog.Logger) *CallbackRelay {
	return &CallbackRelay{
		consumer:    consumer,
		reporter:    reporter,
		logger:      logger.With().Str("stream", consumer.Stream()).Logger(),
		readBackoff: defaultReadBackoff,
	}
}

// Run consumes until ctx is cancelled. Every message is acked once handled,
// including malformed ones, so a poison message is never redelivered.
func (r *CallbackRelay) Run(ctx context.Context) error {
	if err := r.consumer.CreateGroup(ctx); err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	r.logger.Info().Msg("relaying checkout callbacks")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		messages, err := r.consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error().Err(err).Msg("failed to read callbacks")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(r.readBackoff):
			}
			continue
		}

		for _, msg := range messages {
			r.handle(msg)
			if err := r.consumer.Ack(ctx, msg.ID); err != nil {
				r.logger.Error().Err(err).Str("message_id", msg.ID).Msg("failed to ack callback")
			}
		}
	}
}

func (r *CallbackRelay) handle(msg redis.XMessage) {
	log := r.logger.With().Str("message_id", msg.ID).Logger()

	attemptID, err := attemptIDOf(msg.Values)
	if err != nil {
		log.Error().Err(err).Msg("malformed callback, skipped")
		return
	}

	kind := str(msg.Values, "kind")
	var settled bool
	switch kind {
	case KindSuccess:
		paymentID := str(msg.Values, "payment_id")
		if paymentID == "" {
			log.Error().Msg("success callback without payment_id, skipped")
			return
		}
		settled = r.reporter.ReportSuccess(attemptID, checkout.SuccessData{
			PaymentID: paymentID,
			OrderID:   str(msg.Values, "order_id"),
			Signature: str(msg.Values, "signature"),
		})
	case KindError:
		var code, raw any
		if c := str(msg.Values, "code"); c != "" {
			code = c
		}
		if p, ok := msg.Values["payload"]; ok {
			raw = p
		}
		settled = r.reporter.ReportError(attemptID, code, raw)
	case KindCancel:
		settled = r.reporter.ReportCancel(attemptID)
	default:
		log.Error().Str("kind", kind).Msg("unknown callback kind, skipped")
		return
	}

	log.Debug().Str("kind", kind).Bool("settled", settled).Msg("callback relayed")
}

// attemptIDOf requires an attempt ID. Every instance reads the stream through
// its own consumer group, so an unscoped verdict would settle whichever
// checkout each of them has pending.
func attemptIDOf(values map[string]any) (*uuid.UUID, error) {
	raw := str(values, "attempt_id")
	if raw == "" {
		return nil, errors.New("missing attempt_id")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid attempt_id %q: %w", raw, err)
	}
	return &id, nil
}

func str(values map[string]any, key string) string {
	s, _ := values[key].(string)
	return s
}
