package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pasarlink/pasarlink/internal/wallet"
)

func newRunnerFixture(t *testing.T) (*Runner, *fixture, *miniredis.Miniredis) {
	t.Helper()
	f := newFixture(t, nil)
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })
	runner := NewRunner(f.svc, cache, time.Hour, 7, f.svc.logger)
	return runner, f, mr
}

func TestRunOnceSettlesAndReleasesLock(t *testing.T) {
	runner, f, mr := newRunnerFixture(t)
	ctx := context.Background()
	wallet.SeedBalance(f.store, platformID, wallet.OwnerPlatform, 1_000_000)
	f.orders.Put(eligibleOrder("ord-1", "seller-1", 100_000))

	result, err := runner.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if result.Succeeded != 1 || result.Failed != 0 {
		t.Fatalf("unexpected batch result: %+v", result)
	}
	if mr.Exists(runLockKey) {
		t.Fatal("run-lock not released after the batch")
	}

	// A second run acquires the lock again and finds nothing left to settle.
	result, err = runner.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if result.Succeeded != 0 || result.Failed != 0 {
		t.Fatalf("second run re-settled orders: %+v", result)
	}
}

func TestRunOnceRefusesWhileLockHeld(t *testing.T) {
	runner, _, mr := newRunnerFixture(t)

	if err := mr.Set(runLockKey, "other-replica"); err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	if _, err := runner.RunOnce(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}

	// The foreign lock must survive: only the owner may release it.
	got, err := mr.Get(runLockKey)
	if err != nil || got != "other-replica" {
		t.Fatalf("foreign lock was touched: value=%q err=%v", got, err)
	}
}

func TestRunOnceWithoutCacheSkipsLock(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	wallet.SeedBalance(f.store, platformID, wallet.OwnerPlatform, 1_000_000)
	f.orders.Put(eligibleOrder("ord-1", "seller-1", 100_000))

	runner := NewRunner(f.svc, nil, time.Hour, 7, f.svc.logger)
	result, err := runner.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if result.Succeeded != 1 {
		t.Fatalf("expected one settled order, got %+v", result)
	}
}
