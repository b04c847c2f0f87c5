package relay

import (
	"context"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	"github.com/cassiomorais/checkout/internal/domain/outbox"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/rs/zerolog"
)

// Transactor is implemented by postgres.TxManager.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// OutcomePublisher is implemented by redis.StreamProducer.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, attemptID string, rec checkout.Record) error
}

// OutboxRelay polls the outbox and publishes queued outcomes. Delivery is at
// least once: an entry published before its transaction commits is published
// again on the next poll. Consumers dedupe on attempt_id.
type OutboxRelay struct {
	tx        Transactor
	entries   outbox.Repository
	publisher OutcomePublisher
	logger    zerolog.Logger
	metrics   *observability.Metrics
	interval  time.Duration
	batchSize int
}

// NewOutboxRelay builds a relay. metrics may be nil.
func NewOutboxRelay(
	tx Transactor,
	entries outbox.Repository,
	publisher OutcomePublisher,
	logger zerolog.Logger,
	metrics *observability.Metrics,
	interval time.Duration,
	batchSize int,
) *OutboxRelay {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &OutboxRelay{
		tx:        tx,
		entries:   entries,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run polls every interval until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) error {
	r.logger.Info().Dur("interval", r.interval).Msg("relaying outbox")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if _, err := r.PublishPending(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error().Err(err).Msg("outbox poll failed")
		}
	}
}

// PublishPending publishes one batch of pending entries and reports how many
// were published.
func (r *OutboxRelay) PublishPending(ctx context.Context) (int, error) {
	published := 0
	err := r.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		pending, err := r.entries.GetPending(txCtx, r.batchSize)
		if err != nil {
			return err
		}
		for _, e := range pending {
			log := r.logger.With().
				Str("outbox_id", e.ID.String()).
				Str("attempt_id", e.AttemptID.String()).
				Logger()

			if err := r.publisher.PublishOutcome(ctx, e.AttemptID.String(), e.Record); err != nil {
				result := "retry"
				if e.Exhausted() {
					result = "failed"
				}
				log.Error().Err(err).Int("retry_count", e.RetryCount).Str("result", result).Msg("failed to publish outcome")
				if err := r.entries.MarkFailed(txCtx, e.ID); err != nil {
					return err
				}
				r.observe(result)
				continue
			}
			if err := r.entries.MarkPublished(txCtx, e.ID); err != nil {
				return err
			}
			r.observe("published")
			published++
		}
		return nil
	})
	return published, err
}

func (r *OutboxRelay) observe(result string) {
	if r.metrics != nil {
		r.metrics.OutboxEntries.WithLabelValues(result).Inc()
	}
}
