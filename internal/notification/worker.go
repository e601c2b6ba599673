package notification

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fitstudio/internal/logger"
	"fitstudio/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// Worker drains the notification queue into the notifications table.
type Worker struct {
	redis       *redis.Client
	repo        Repository
	retryDelay  time.Duration
	pollBackoff time.Duration
}

func NewWorker(rdb *redis.Client, repo Repository) *Worker {
	return &Worker{
		redis:       rdb,
		repo:        repo,
		retryDelay:  time.Second,
		pollBackoff: 2 * time.Second,
	}
}

func (w *Worker) Start(ctx context.Context) {
	logger.Info("Notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *Worker) processNext(ctx context.Context) {
	result, err := w.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return
		}
		logger.WithError(err).Warn("notification queue unavailable", "retry_in", w.pollBackoff.String())
		select {
		case <-ctx.Done():
		case <-time.After(w.pollBackoff):
		}
		return
	}

	var j job
	if err := json.Unmarshal([]byte(result[1]), &j); err != nil {
		logger.Errorf("Bad notification data: %v", err)
		return
	}

	if l, err := w.redis.LLen(ctx, queueKey).Result(); err == nil {
		metrics.NotificationQueueLength.Set(float64(l))
	}

	j.Tries++
	n := j.Notification
	if err := w.repo.Create(ctx, &n); err != nil {
		logger.WithError(err).Warn("failed to store notification", "type", n.Type, "attempt", j.Tries)

		if j.Tries < maxTries {
			time.Sleep(w.retryDelay)
			data, _ := json.Marshal(j)
			w.redis.LPush(context.Background(), queueKey, data)
		} else {
			w.saveFailed(j, err)
		}
		return
	}

	metrics.RecordNotification("stored")
}

func (w *Worker) saveFailed(j job, err error) {
	failed := map[string]interface{}{
		"job":   j,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	w.redis.LPush(context.Background(), failedQueueKey, data)
	metrics.RecordNotification("failed")
	logger.Error("notification moved to failed queue", "type", j.Notification.Type)
}
