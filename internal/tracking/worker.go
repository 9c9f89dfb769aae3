package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labeldesk/backend/internal/config"
	"github.com/labeldesk/backend/internal/metrics"
	"github.com/labeldesk/backend/internal/models"
)

// Activator registers a label's tracking number with its carrier.
type Activator interface {
	Activate(ctx context.Context, job Job) error
}

// StatusWriter records the tracking outcome on the label.
type StatusWriter interface {
	SetTrackingStatus(ctx context.Context, labelID, status string) error
}

// LogActivator accepts every job. It stands in for a carrier integration.
type LogActivator struct {
	logger *slog.Logger
}

func NewLogActivator(logger *slog.Logger) *LogActivator {
	return &LogActivator{logger: logger}
}

func (a *LogActivator) Activate(ctx context.Context, job Job) error {
	a.logger.InfoContext(ctx, "tracking activated", "label_id", job.LabelID, "carrier", job.Carrier, "tracking_number", job.TrackingNumber)
	return nil
}

type Worker struct {
	rdb       *redis.Client
	activator Activator
	statuses  StatusWriter
	cfg       config.TrackingConfig
	logger    *slog.Logger
}

func NewWorker(rdb *redis.Client, activator Activator, statuses StatusWriter, cfg config.TrackingConfig, logger *slog.Logger) *Worker {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 2 * time.Second
	}
	return &Worker{
		rdb:       rdb,
		activator: activator,
		statuses:  statuses,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start processes jobs until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("tracking worker started", "queue", QueueKey, "max_attempts", w.cfg.MaxAttempts)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("tracking worker stopped")
			return
		default:
		}

		if _, err := w.ProcessNext(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("tracking queue poll failed", "error", err)
			sleep(ctx, w.cfg.PollTimeout)
		}
	}
}

// ProcessNext handles at most one job. It reports false when the poll timed
// out with an empty queue.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	result, err := w.rdb.BRPop(ctx, w.cfg.PollTimeout, QueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if n, err := w.rdb.LLen(ctx, QueueKey).Result(); err == nil {
		metrics.TrackingQueueLength.Set(float64(n))
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		w.logger.Error("bad tracking job payload", "error", err)
		metrics.RecordTrackingJob("malformed")
		return true, w.deadLetter(ctx, Job{}, err)
	}

	job.Tries++
	err = w.activator.Activate(ctx, job)
	if err == nil {
		metrics.RecordTrackingJob("activated")
		w.logger.Info("tracking activation succeeded", "label_id", job.LabelID, "attempt", job.Tries)
		return true, w.statuses.SetTrackingStatus(ctx, job.LabelID, models.TrackingStatusActive)
	}

	w.logger.Warn("tracking activation failed", "label_id", job.LabelID, "attempt", job.Tries, "error", err)

	if job.Tries < w.cfg.MaxAttempts {
		metrics.RecordTrackingJob("retried")
		sleep(ctx, w.cfg.RetryDelay)
		return true, push(context.WithoutCancel(ctx), w.rdb, QueueKey, job)
	}

	metrics.RecordTrackingJob("failed")
	if err := w.statuses.SetTrackingStatus(ctx, job.LabelID, models.TrackingStatusFailed); err != nil {
		w.logger.Error("failed to mark tracking failed", "label_id", job.LabelID, "error", err)
	}
	return true, w.deadLetter(ctx, job, err)
}

func (w *Worker) deadLetter(ctx context.Context, job Job, cause error) error {
	w.logger.Error("tracking job moved to failed queue", "label_id", job.LabelID, "tries", job.Tries)
	return push(context.WithoutCancel(ctx), w.rdb, FailedQueueKey, FailedJob{
		Job:    job,
		Error:  cause.Error(),
		Failed: time.Now().UTC(),
	})
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
