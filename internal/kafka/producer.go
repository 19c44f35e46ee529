package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bhoomash/publicwayservice-sub000/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes complaint notifications to a Kafka topic. Messages are
// keyed by complaint id so one complaint's events share a partition and stay
// ordered; the event id travels in the event_id header for deduplication.
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer creates a producer. With no brokers or topic every method is a no-op.
func NewProducer(brokers []string, topic string) *Producer {
	if len(brokers) == 0 || topic == "" {
		return &Producer{}
	}
	return &Producer{
		topic: topic,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Enabled reports whether the producer has a writer.
func (p *Producer) Enabled() bool {
	return p.writer != nil
}

// Publish writes the event and returns the broker error so callers can retry.
func (p *Producer) Publish(ctx context.Context, event models.NotificationEvent) error {
	if p.writer == nil {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: marshal %s event: %w", event.Kind, err)
	}
	msg := kafka.Message{
		Key:   []byte(event.ComplaintID),
		Value: body,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "kind", Value: []byte(event.Kind)},
			{Key: "complaint_id", Value: []byte(event.ComplaintID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write %s event: %w", event.Kind, err)
	}
	return nil
}

// Close closes the writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
