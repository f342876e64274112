package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-auth/internal/persistence"
	"github.com/spec-kit/storefront-auth/internal/service"
)

const sweepLockKey = "auth:token_sweep"

// TokenSweeper periodically deletes expired token rows. It is housekeeping
// only: expiry is enforced at read time, so a stalled sweeper never lets a
// dead token back in. The redis lock keeps multiple instances from sweeping
// at once.
type TokenSweeper struct {
	lifecycle *service.LifecycleService
	redis     *persistence.Redis
	interval  time.Duration
	logger    *zap.Logger
}

// NewTokenSweeper builds the sweeper.
func NewTokenSweeper(lifecycle *service.LifecycleService, redis *persistence.Redis, interval time.Duration, logger *zap.Logger) *TokenSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &TokenSweeper{lifecycle: lifecycle, redis: redis, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, sweeping on each tick.
func (w *TokenSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *TokenSweeper) sweep(ctx context.Context) {
	held, err := w.redis.AcquireLock(ctx, sweepLockKey, w.interval)
	if err != nil {
		w.logger.Warn("sweep lock unavailable", zap.Error(err))
		return
	}
	if !held {
		return
	}

	removed, err := w.lifecycle.DeleteExpired(ctx, time.Now())
	if err != nil {
		w.logger.Error("token sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		w.logger.Info("token sweep completed", zap.Int64("removed", removed))
	}
}
