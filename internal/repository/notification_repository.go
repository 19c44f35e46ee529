package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bhoomash/publicwayservice-sub000/internal/models"
)

// publishOnce appends to the stream only when the dedupe key was not yet set.
var publishOnce = redis.NewScript(`
if redis.call('SET', KEYS[1], '1', 'NX', 'PX', ARGV[1]) then
  return redis.call('XADD', KEYS[2], 'MAXLEN', '~', ARGV[2], '*', 'id', ARGV[3], 'kind', ARGV[4], 'payload', ARGV[5])
end
return false
`)

// NotificationStreamRepository publishes complaint notifications to a Redis stream.
type NotificationStreamRepository struct {
	client    redis.Scripter
	stream    string
	maxLen    int64
	dedupeTTL time.Duration
}

// NewNotificationStreamRepository constructs the repository.
func NewNotificationStreamRepository(client redis.Scripter, stream string, maxLen int64, dedupeTTL time.Duration) *NotificationStreamRepository {
	if stream == "" {
		stream = "complaints:notifications"
	}
	if maxLen <= 0 {
		maxLen = 10000
	}
	if dedupeTTL <= 0 {
		dedupeTTL = 24 * time.Hour
	}
	return &NotificationStreamRepository{client: client, stream: stream, maxLen: maxLen, dedupeTTL: dedupeTTL}
}

// Publish appends the event unless an event with the same id was already
// published within the dedupe window. It reports whether a new entry was written.
func (r *NotificationStreamRepository) Publish(ctx context.Context, event models.NotificationEvent) (bool, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return false, fmt.Errorf("marshal notification %s: %w", event.ID, err)
	}
	keys := []string{r.dedupeKey(event.ID), r.stream}
	_, err = publishOnce.Run(ctx, r.client, keys,
		r.dedupeTTL.Milliseconds(), r.maxLen, event.ID, string(event.Kind), string(payload)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis publish notification %s: %w", event.ID, err)
	}
	return true, nil
}

func (r *NotificationStreamRepository) dedupeKey(id string) string {
	return r.stream + ":seen:" + id
}
