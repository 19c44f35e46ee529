package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhoomash/publicwayservice-sub000/internal/models"
)

type writerStub struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *writerStub) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *writerStub) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestProducerDisabledWithoutBrokers(t *testing.T) {
	p := NewProducer(nil, "complaints")
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Publish(context.Background(), models.NotificationEvent{ID: "e-1"}))
	assert.NoError(t, p.Close())
}

func TestProducerPublishKeysByComplaintID(t *testing.T) {
	w := &writerStub{}
	p := &Producer{writer: w, topic: "complaints"}
	event := models.NotificationEvent{
		ID:          "e-1",
		Kind:        models.NotifyStatusChanged,
		ComplaintID: "c-1",
		Status:      models.StatusInProgress,
		OccurredAt:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.Publish(context.Background(), event))
	event.ID, event.Kind = "e-2", models.NotifyNoteAdded
	require.NoError(t, p.Publish(context.Background(), event))
	require.Len(t, w.messages, 2)
	assert.Equal(t, "c-1", string(w.messages[0].Key))
	assert.Equal(t, w.messages[0].Key, w.messages[1].Key)
	assert.Equal(t, "e-1", header(w.messages[0], "event_id"))
	assert.Equal(t, "e-2", header(w.messages[1], "event_id"))

	var decoded models.NotificationEvent
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &decoded))
	assert.Equal(t, models.StatusInProgress, decoded.Status)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducerPublishReturnsWriterError(t *testing.T) {
	p := &Producer{writer: &writerStub{err: errors.New("leader not available")}}
	err := p.Publish(context.Background(), models.NotificationEvent{ID: "e-1", Kind: models.NotifyCreated})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}
