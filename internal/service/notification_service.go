package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bhoomash/publicwayservice-sub000/internal/models"
	"github.com/bhoomash/publicwayservice-sub000/pkg/jobs"
)

// Job types handled by the background queue.
const (
	JobNotify = "notify"
	JobIndex  = "index"
)

type jobEnqueuer interface {
	TryEnqueue(job jobs.Job) error
}

type notificationMetrics interface {
	ObserveNotification(sink, outcome string)
}

// NotificationSink delivers one event to a downstream channel. Deliveries may
// be repeated for the same event id; sinks must tolerate that.
type NotificationSink interface {
	Name() string
	Deliver(ctx context.Context, event models.NotificationEvent) error
}

type notifyPayload struct {
	Sink  string
	Event models.NotificationEvent
}

// NotificationDispatcher fans events out to its sinks through the job queue.
// Each sink gets its own job so a failing sink is retried alone.
type NotificationDispatcher struct {
	sinks   map[string]NotificationSink
	order   []string
	queue   jobEnqueuer
	metrics notificationMetrics
	logger  *zap.Logger
}

// NewNotificationDispatcher constructs the dispatcher.
func NewNotificationDispatcher(queue jobEnqueuer, metrics notificationMetrics, logger *zap.Logger, sinks ...NotificationSink) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &NotificationDispatcher{sinks: make(map[string]NotificationSink, len(sinks)), queue: queue, metrics: metrics, logger: logger}
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		if _, dup := d.sinks[sink.Name()]; dup {
			continue
		}
		d.sinks[sink.Name()] = sink
		d.order = append(d.order, sink.Name())
	}
	return d
}

// Emit schedules delivery of event and returns immediately.
func (d *NotificationDispatcher) Emit(_ context.Context, event models.NotificationEvent) {
	for _, name := range d.order {
		err := d.queue.TryEnqueue(jobs.Job{
			ID:      event.ID + ":" + name,
			Type:    JobNotify,
			Payload: notifyPayload{Sink: name, Event: event},
		})
		if err != nil {
			d.observe(name, "dropped")
			d.logger.Warn("notification not scheduled",
				zap.String("event_id", event.ID),
				zap.String("sink", name),
				zap.Error(err),
			)
		}
	}
}

// Handle is the queue handler for JobNotify jobs.
func (d *NotificationDispatcher) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(notifyPayload)
	if !ok {
		return fmt.Errorf("notify job %s: unexpected payload %T", job.ID, job.Payload)
	}
	sink, ok := d.sinks[payload.Sink]
	if !ok {
		return fmt.Errorf("notify job %s: unknown sink %q", job.ID, payload.Sink)
	}
	if err := sink.Deliver(ctx, payload.Event); err != nil {
		d.observe(payload.Sink, "failed")
		return fmt.Errorf("deliver %s to %s: %w", payload.Event.ID, payload.Sink, err)
	}
	d.observe(payload.Sink, "sent")
	return nil
}

func (d *NotificationDispatcher) observe(sink, outcome string) {
	if d.metrics != nil {
		d.metrics.ObserveNotification(sink, outcome)
	}
}

// LogSink writes notifications to the structured log.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink builds a log sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Name implements NotificationSink.
func (s *LogSink) Name() string { return "log" }

// Deliver implements NotificationSink.
func (s *LogSink) Deliver(_ context.Context, event models.NotificationEvent) error {
	s.logger.Info("complaint notification",
		zap.String("event_id", event.ID),
		zap.String("kind", string(event.Kind)),
		zap.String("complaint_id", event.ComplaintID),
		zap.String("submitter_id", event.SubmitterID),
		zap.String("status", string(event.Status)),
		zap.String("department", event.Department),
	)
	return nil
}

type streamPublisher interface {
	Publish(ctx context.Context, event models.NotificationEvent) (bool, error)
}

// StreamSink appends notifications to a Redis stream, skipping ids already published.
type StreamSink struct {
	publisher streamPublisher
	logger    *zap.Logger
}

// NewStreamSink builds a Redis stream sink.
func NewStreamSink(publisher streamPublisher, logger *zap.Logger) *StreamSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamSink{publisher: publisher, logger: logger}
}

// Name implements NotificationSink.
func (s *StreamSink) Name() string { return "redis" }

// Deliver implements NotificationSink.
func (s *StreamSink) Deliver(ctx context.Context, event models.NotificationEvent) error {
	written, err := s.publisher.Publish(ctx, event)
	if err != nil {
		return err
	}
	if !written {
		s.logger.Debug("duplicate notification skipped", zap.String("event_id", event.ID))
	}
	return nil
}

type kafkaPublisher interface {
	Publish(ctx context.Context, event models.NotificationEvent) error
}

// KafkaSink publishes notifications to Kafka keyed by complaint id.
type KafkaSink struct {
	producer kafkaPublisher
}

// NewKafkaSink builds a Kafka sink.
func NewKafkaSink(producer kafkaPublisher) *KafkaSink {
	return &KafkaSink{producer: producer}
}

// Name implements NotificationSink.
func (s *KafkaSink) Name() string { return "kafka" }

// Deliver implements NotificationSink.
func (s *KafkaSink) Deliver(ctx context.Context, event models.NotificationEvent) error {
	return s.producer.Publish(ctx, event)
}
