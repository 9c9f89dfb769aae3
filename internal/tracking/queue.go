// Package tracking activates carrier tracking for purchased labels through a
// Redis list queue with bounded retries and a dead-letter list.
package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	QueueKey       = "tracking:activate"
	FailedQueueKey = "tracking:activate:failed"
)

type Job struct {
	LabelID        string    `json:"label_id"`
	AccountID      string    `json:"account_id"`
	Carrier        string    `json:"carrier"`
	TrackingNumber string    `json:"tracking_number"`
	Tries          int       `json:"tries"`
	Created        time.Time `json:"created"`
}

type FailedJob struct {
	Job    Job       `json:"job"`
	Error  string    `json:"error"`
	Failed time.Time `json:"failed"`
}

type Queue struct {
	rdb *redis.Client
}

func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// Enqueue pushes a new activation job for the label.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	job.Tries = 0
	if job.Created.IsZero() {
		job.Created = time.Now().UTC()
	}
	return push(ctx, q.rdb, QueueKey, job)
}

func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, QueueKey).Result()
}

func (q *Queue) FailedLength(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, FailedQueueKey).Result()
}

func push(ctx context.Context, rdb *redis.Client, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s job: %w", key, err)
	}
	if err := rdb.LPush(ctx, key, string(data)).Err(); err != nil {
		return fmt.Errorf("push %s: %w", key, err)
	}
	return nil
}
