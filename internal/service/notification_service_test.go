package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bhoomash/publicwayservice-sub000/internal/models"
	"github.com/bhoomash/publicwayservice-sub000/pkg/jobs"
)

type queueStub struct {
	mu   sync.Mutex
	jobs []jobs.Job
	err  error
}

func (q *queueStub) TryEnqueue(job jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type mockSink struct {
	mock.Mock
	name string
}

func (m *mockSink) Name() string { return m.name }

func (m *mockSink) Deliver(ctx context.Context, event models.NotificationEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type notificationMetricsStub struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (n *notificationMetricsStub) ObserveNotification(sink, outcome string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.outcomes == nil {
		n.outcomes = map[string]int{}
	}
	n.outcomes[sink+":"+outcome]++
}

type streamPublisherStub struct {
	seen map[string]bool
	err  error
}

func (s *streamPublisherStub) Publish(_ context.Context, e models.NotificationEvent) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.seen[e.ID] {
		return false, nil
	}
	s.seen[e.ID] = true
	return true, nil
}

func TestNotificationDispatcherSchedulesOneJobPerSink(t *testing.T) {
	queue := &queueStub{}
	log := &mockSink{name: "log"}
	kafka := &mockSink{name: "kafka"}
	d := NewNotificationDispatcher(queue, nil, nil, log, kafka, &mockSink{name: "log"})

	d.Emit(context.Background(), models.NotificationEvent{ID: "m-1", Kind: models.NotifyCreated})
	require.Len(t, queue.jobs, 2)
	assert.Equal(t, "m-1:log", queue.jobs[0].ID)
	assert.Equal(t, "m-1:kafka", queue.jobs[1].ID)
	assert.Equal(t, JobNotify, queue.jobs[0].Type)
}

func TestNotificationDispatcherHandleDelivers(t *testing.T) {
	queue := &queueStub{}
	sink := &mockSink{name: "kafka"}
	metrics := &notificationMetricsStub{}
	d := NewNotificationDispatcher(queue, metrics, nil, sink)
	event := models.NotificationEvent{ID: "m-1", Kind: models.NotifyStatusChanged}

	sink.On("Deliver", mock.Anything, event).Return(errors.New("broker down")).Once()
	sink.On("Deliver", mock.Anything, event).Return(nil).Once()

	d.Emit(context.Background(), event)
	require.Len(t, queue.jobs, 1)
	require.Error(t, d.Handle(context.Background(), queue.jobs[0]))
	require.NoError(t, d.Handle(context.Background(), queue.jobs[0]))

	sink.AssertExpectations(t)
	assert.Equal(t, 1, metrics.outcomes["kafka:failed"])
	assert.Equal(t, 1, metrics.outcomes["kafka:sent"])
}

func TestNotificationDispatcherQueueClosedDrops(t *testing.T) {
	metrics := &notificationMetricsStub{}
	d := NewNotificationDispatcher(&queueStub{err: jobs.ErrQueueClosed}, metrics, nil, NewLogSink(nil))

	d.Emit(context.Background(), models.NotificationEvent{ID: "m-1"})
	assert.Equal(t, 1, metrics.outcomes["log:dropped"])
}

func TestNotificationDispatcherRejectsBadPayload(t *testing.T) {
	d := NewNotificationDispatcher(&queueStub{}, nil, nil, NewLogSink(nil))
	assert.Error(t, d.Handle(context.Background(), jobs.Job{ID: "x", Payload: "nope"}))
	assert.Error(t, d.Handle(context.Background(), jobs.Job{ID: "x", Payload: notifyPayload{Sink: "sms"}}))
}

func TestNotificationDispatcherRetriesThroughQueue(t *testing.T) {
	sink := &mockSink{name: "redis"}
	event := models.NotificationEvent{ID: "m-2", Kind: models.NotifyNoteAdded}
	delivered := make(chan struct{})
	sink.On("Deliver", mock.Anything, event).Return(errors.New("timeout")).Once()
	sink.On("Deliver", mock.Anything, event).Run(func(mock.Arguments) { close(delivered) }).Return(nil).Once()

	var d *NotificationDispatcher
	queue := jobs.NewQueue("notify", func(ctx context.Context, job jobs.Job) error {
		return d.Handle(ctx, job)
	}, jobs.QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	d = NewNotificationDispatcher(queue, nil, nil, sink)
	queue.Start(context.Background())
	defer queue.Stop(time.Second)

	d.Emit(context.Background(), event)
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not retried")
	}
	sink.AssertExpectations(t)
}

func TestStreamSinkToleratesDuplicates(t *testing.T) {
	sink := NewStreamSink(&streamPublisherStub{seen: map[string]bool{}}, nil)
	event := models.NotificationEvent{ID: "m-1"}

	require.NoError(t, sink.Deliver(context.Background(), event))
	require.NoError(t, sink.Deliver(context.Background(), event))
	assert.Equal(t, "redis", sink.Name())

	failing := NewStreamSink(&streamPublisherStub{err: errors.New("down")}, nil)
	assert.Error(t, failing.Deliver(context.Background(), event))
}
