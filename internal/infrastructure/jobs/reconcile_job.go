package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
	"coinledger.backend/internal/usecases"
	"coinledger.backend/pkg/logger"
	"coinledger.backend/pkg/redis"
)

// tickLockKey guards the reconcile tick across replicas. The TTL covers
// a hung tick: the lock falls away on its own.
const tickLockKey = "reconcile:tick"

// ReconcileJob drives the reconcile usecase on a fixed interval with a
// redis mutual-exclusion lock so overlapping ticks are excluded.
type ReconcileJob struct {
	reconcile *usecases.ReconcileUsecase
	interval  time.Duration
	lockTTL   time.Duration
	stop      chan struct{}
}

// NewReconcileJob creates a new reconcile job
func NewReconcileJob(reconcile *usecases.ReconcileUsecase, interval time.Duration) *ReconcileJob {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ReconcileJob{
		reconcile: reconcile,
		interval:  interval,
		lockTTL:   2 * interval,
		stop:      make(chan struct{}),
	}
}

// Start runs the tick loop until the context is cancelled or Stop is
// called. Blocks; run it on its own goroutine.
func (j *ReconcileJob) Start(ctx context.Context) {
	logger.Info(ctx, "reconcile job started", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "reconcile job stopped")
			return
		case <-j.stop:
			logger.Info(ctx, "reconcile job stopped")
			return
		case <-ticker.C:
			j.tick(ctx)
		}
	}
}

// Stop signals the loop to exit.
func (j *ReconcileJob) Stop() {
	close(j.stop)
}

// Tick runs one reconcile pass immediately, outside the schedule. Used
// by the admin trigger endpoint.
func (j *ReconcileJob) Tick(ctx context.Context) {
	j.tick(ctx)
}

func (j *ReconcileJob) tick(ctx context.Context) {
	if redis.GetClient() != nil {
		acquired, err := redis.SetNX(ctx, tickLockKey, "1", j.lockTTL)
		if err != nil {
			logger.Error(ctx, "reconcile tick lock probe failed", zap.Error(err))
			return
		}
		if !acquired {
			logger.Debug(ctx, "reconcile tick already running elsewhere")
			return
		}
		defer func() {
			if err := redis.Del(ctx, tickLockKey); err != nil {
				logger.Warn(ctx, "reconcile tick lock not released", zap.Error(err))
			}
		}()
	}

	if err := j.reconcile.RunDue(ctx); err != nil {
		logger.Error(ctx, "reconcile tick failed", zap.Error(err))
	}
}
