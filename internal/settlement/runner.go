package settlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	runLockKey = "settlement:run-lock"
	runLockTTL = 10 * time.Minute
)

// ErrRunInProgress indicates another settlement run holds the lock.
var ErrRunInProgress = errors.New("settlement run already in progress")

// releaseScript deletes the lock only when this runner still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
end
return 0`)

// Runner executes the settlement batch on a fixed interval. A Redis run-lock
// keeps runs from overlapping across ticks and across replicas: two
// concurrent batches could double-pay the same order.
type Runner struct {
	svc              *Service
	cache            *redis.Client
	interval         time.Duration
	returnPeriodDays int
	logger           *slog.Logger
}

// NewRunner builds the periodic settlement job. cache may be nil in local
// single-process setups; the lock is skipped then.
func NewRunner(svc *Service, cache *redis.Client, interval time.Duration, returnPeriodDays int, logger *slog.Logger) *Runner {
	return &Runner{
		svc:              svc,
		cache:            cache,
		interval:         interval,
		returnPeriodDays: returnPeriodDays,
		logger:           logger,
	}
}

// Start blocks, running a batch per tick until the context is cancelled.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("settlement runner stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
				r.logger.Error("settlement run failed", "error", err)
			}
		}
	}
}

// RunOnce acquires the run-lock and settles one batch. Returns
// ErrRunInProgress when another run holds the lock.
func (r *Runner) RunOnce(ctx context.Context) (BatchResult, error) {
	if r.cache != nil {
		token := uuid.NewString()
		acquired, err := r.cache.SetNX(ctx, runLockKey, token, runLockTTL).Result()
		if err != nil {
			return BatchResult{}, err
		}
		if !acquired {
			return BatchResult{}, ErrRunInProgress
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, r.cache, []string{runLockKey}, token).Err(); err != nil {
				r.logger.Warn("release settlement run-lock failed", "error", err)
			}
		}()
	}

	return r.svc.SettleBatch(ctx, r.returnPeriodDays)
}
