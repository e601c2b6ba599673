package notification

import (
	"context"
	"encoding/json"
	"time"

	"fitstudio/internal/logger"
	"fitstudio/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey       = "notifications"
	failedQueueKey = "notifications:failed"
	maxTries       = 3
)

// Notifier publishes notifications without blocking the caller on delivery.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Dispatcher enqueues notifications on a Redis list consumed by Worker.
type Dispatcher struct {
	redis *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{redis: rdb}
}

// Notify is best-effort: failures are logged and counted, never returned.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	data, err := json.Marshal(job{Notification: n, Created: time.Now()})
	if err != nil {
		logger.WithError(err).Error("failed to encode notification", "type", n.Type)
		metrics.RecordNotification("dropped")
		return
	}

	if err := d.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.WithError(err).Warn("failed to queue notification", "type", n.Type, "role", n.Role)
		metrics.RecordNotification("dropped")
		return
	}

	metrics.RecordNotification("queued")
}

func (d *Dispatcher) QueueLength(ctx context.Context) int64 {
	length, _ := d.redis.LLen(ctx, queueKey).Result()
	return length
}
