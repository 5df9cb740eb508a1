package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/supplyhub/supplyhub/internal/jobs"
)

// KeyPruner removes idempotency keys older than the cutoff.
type KeyPruner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob prunes expired idempotency keys on a schedule.
type IdempotencyCleanupJob struct {
	Store      KeyPruner
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	DefaultTTL time.Duration
}

// NewIdempotencyCleanupJob initialises the cleanup handler.
func NewIdempotencyCleanupJob(store KeyPruner, logger *slog.Logger, metrics *jobmetrics.Metrics, ttl time.Duration) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{Store: store, Logger: logger, Metrics: metrics, DefaultTTL: ttl}
}

// Handle executes the cleanup.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.OlderThan <= 0 {
		payload.OlderThan = j.DefaultTTL
	}

	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	removed, err := j.Store.Cleanup(ctx, payload.OlderThan)
	if err != nil {
		resultErr = err
		j.Logger.Error("idempotency cleanup failed", slog.Any("error", err))
		return resultErr
	}
	j.Logger.Info("idempotency cleanup complete",
		slog.Duration("older_than", payload.OlderThan),
		slog.Int64("removed", removed))
	return nil
}
