package pub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"finance-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const RecordEventsChannel = "record_events"

// RecordEvent describes one committed reconciliation. Published after the
// transaction commits; consumers must tolerate at-most-once delivery.
type RecordEvent struct {
	EventType  string                `json:"event_type"` // record.created, record.reconciled, record.deleted
	Kind       domain.RecordKind     `json:"kind"`
	RecordID   int64                 `json:"record_id"`
	Reference  string                `json:"reference"`
	Status     string                `json:"status"`
	Deltas     []domain.BalanceDelta `json:"deltas,omitempty"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// RecordEventPublisher fans reconciliation events out to the Redis channel
// (live subscribers) and the Kafka topic (durable stream). Both legs are
// best-effort: a publish failure is logged and never unwinds the ledger.
type RecordEventPublisher struct {
	rdb    *redis.Client
	writer *kafka.Writer
	logger *zap.Logger
}

func NewRecordEventPublisher(rdb *redis.Client, writer *kafka.Writer, logger *zap.Logger) *RecordEventPublisher {
	return &RecordEventPublisher{rdb: rdb, writer: writer, logger: logger}
}

func (p *RecordEventPublisher) Publish(ctx context.Context, event *RecordEvent) error {
	event.OccurredAt = time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if p.rdb != nil {
		if err := p.rdb.Publish(ctx, RecordEventsChannel, payload).Err(); err != nil {
			p.logger.Warn("redis publish failed",
				zap.String("event_type", event.EventType),
				zap.String("reference", event.Reference),
				zap.Error(err))
		}
	}

	if p.writer != nil {
		msg := kafka.Message{
			Key:   []byte(event.Reference),
			Value: payload,
		}
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			p.logger.Warn("kafka publish failed",
				zap.String("event_type", event.EventType),
				zap.String("reference", event.Reference),
				zap.Error(err))
		}
	}

	return nil
}
