package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/redis/go-redis/v9"
)

const (
	OpenStream     = "checkout:open"
	OutcomeStream  = "checkout:outcomes"
	CallbackStream = "checkout:callbacks"
)

type StreamProducer struct {
	client  redis.Cmdable
	metrics *observability.Metrics
}

func NewStreamProducer(client redis.Cmdable, metrics *observability.Metrics) *StreamProducer {
	return &StreamProducer{client: client, metrics: metrics}
}

// PublishOpen hands a checkout to the hosted surface.
func (p *StreamProducer) PublishOpen(ctx context.Context, attemptID string, payload checkout.Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout payload: %w", err)
	}

	return p.publish(ctx, OpenStream, map[string]any{
		"attempt_id": attemptID,
		"payload":    string(data),
		"timestamp":  time.Now().Unix(),
	})
}

// PublishOutcome announces a settled checkout.
func (p *StreamProducer) PublishOutcome(ctx context.Context, attemptID string, rec checkout.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	return p.publish(ctx, OutcomeStream, map[string]any{
		"attempt_id": attemptID,
		"status":     string(rec.Status),
		"payload":    string(data),
		"timestamp":  time.Now().Unix(),
	})
}

func (p *StreamProducer) publish(ctx context.Context, stream string, values map[string]any) error {
	_, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()

	if p.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		p.metrics.StreamMessagesPublished.WithLabelValues(stream, status).Inc()
	}
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}
	return nil
}

type StreamConsumer struct {
	client        redis.Cmdable
	stream        string
	group         string
	consumer      string
	batchSize     int64
	blockDuration time.Duration
}

func NewStreamConsumer(
	client redis.Cmdable,
	stream string,
	group string,
	consumer string,
	batchSize int64,
	blockDuration time.Duration,
) *StreamConsumer {
	return &StreamConsumer{
		client:        client,
		stream:        stream,
		group:         group,
		consumer:      consumer,
		batchSize:     batchSize,
		blockDuration: blockDuration,
	}
}

func (c *StreamConsumer) Stream() string { return c.stream }

func (c *StreamConsumer) CreateGroup(ctx context.Context) error {
	// Create stream if it doesn't exist
	const busyGroupMsg = "BUSYGROUP"
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), busyGroupMsg) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Read returns the next batch of messages, or nil when the block duration
// passes without any.
func (c *StreamConsumer) Read(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    c.batchSize,
		Block:    c.blockDuration,
	}).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	var messages []redis.XMessage
	for _, s := range streams {
		messages = append(messages, s.Messages...)
	}
	return messages, nil
}

func (c *StreamConsumer) Ack(ctx context.Context, messageID string) error {
	err := c.client.XAck(ctx, c.stream, c.group, messageID).Err()
	if err != nil {
		return fmt.Errorf("failed to ack message: %w", err)
	}
	return nil
}
