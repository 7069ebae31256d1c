package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amyangfei/redlock-go/v3/redlock"
	"go.uber.org/zap"

	"github.com/selivandex/market-reporter/pkg/logger"
)

// DistributedLock is a redlock-backed Lease that renews itself while held
type DistributedLock struct {
	lockManager *redlock.RedLock
	key         string
	ttl         time.Duration

	mu     sync.Mutex
	locked bool
	stop   chan struct{}
}

// NewDistributedLock creates new distributed lease using redlock-go
func NewDistributedLock(lockManager *redlock.RedLock, key string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		lockManager: lockManager,
		key:         key,
		ttl:         ttl,
	}
}

// TryAcquire attempts to take the lease using the Redlock algorithm
func (dl *DistributedLock) TryAcquire(ctx context.Context) (bool, error) {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	if dl.locked {
		return false, nil
	}

	expiry, err := dl.lockManager.Lock(ctx, dl.key, dl.ttl)
	if err != nil {
		logger.Debug("lease already held elsewhere",
			zap.String("key", dl.key),
			zap.Error(err),
		)
		return false, nil
	}

	if expiry <= 0 {
		return false, fmt.Errorf("failed to acquire lease %s: invalid expiry %v", dl.key, expiry)
	}

	dl.locked = true
	dl.stop = make(chan struct{})

	logger.Info("lease acquired",
		zap.String("key", dl.key),
		zap.Duration("ttl", dl.ttl),
		zap.Duration("expiry", expiry),
	)

	go dl.renewLock(dl.stop)

	return true, nil
}

// Release releases the lease and stops renewal
func (dl *DistributedLock) Release(ctx context.Context) error {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	if !dl.locked {
		return nil
	}

	close(dl.stop)
	dl.locked = false

	if err := dl.lockManager.UnLock(ctx, dl.key); err != nil {
		// May have already expired naturally
		logger.Warn("failed to release lease",
			zap.String("key", dl.key),
			zap.Error(err),
		)
		return nil
	}

	logger.Info("lease released", zap.String("key", dl.key))
	return nil
}

// renewLock extends the lease at 2/3 of its TTL until stopped
func (dl *DistributedLock) renewLock(stop <-chan struct{}) {
	ticker := time.NewTicker((dl.ttl * 2) / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return

		case <-ticker.C:
			dl.mu.Lock()
			if !dl.locked {
				dl.mu.Unlock()
				return
			}

			// redlock-go has no extend, so unlock + lock
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := dl.lockManager.UnLock(ctx, dl.key)
			var expiry time.Duration
			if err == nil {
				expiry, err = dl.lockManager.Lock(ctx, dl.key, dl.ttl)
			}
			cancel()

			if err != nil || expiry <= 0 {
				logger.Error("lease lost during renewal",
					zap.String("key", dl.key),
					zap.Error(err),
				)
				dl.locked = false
				close(dl.stop)
				dl.mu.Unlock()
				return
			}
			dl.mu.Unlock()

			logger.Debug("lease renewed",
				zap.String("key", dl.key),
				zap.Duration("expiry", expiry),
			)
		}
	}
}

// CheckLockHeld verifies if we still hold the lease
func (dl *DistributedLock) CheckLockHeld(ctx context.Context) (bool, error) {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return dl.locked, nil
}

// Key returns the lease name
func (dl *DistributedLock) Key() string {
	return dl.key
}
