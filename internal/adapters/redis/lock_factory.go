package redis

import (
	"context"
	"sync"
	"time"

	"github.com/amyangfei/redlock-go/v3/redlock"
)

// LockFactory creates leases by key
type LockFactory interface {
	CreateLease(key string, ttl time.Duration) Lease
}

// RedisLockFactory creates Redis-based leases
type RedisLockFactory struct {
	lockManager *redlock.RedLock
}

// NewRedisLockFactory creates new Redis lock factory
func NewRedisLockFactory(lockManager *redlock.RedLock) *RedisLockFactory {
	return &RedisLockFactory{
		lockManager: lockManager,
	}
}

// CreateLease creates a distributed lease for key
func (f *RedisLockFactory) CreateLease(key string, ttl time.Duration) Lease {
	return NewDistributedLock(f.lockManager, key, ttl)
}

// MemoryLockFactory hands out process-local leases.
// Leases created by the same factory contend on the same keys.
type MemoryLockFactory struct {
	mu   sync.Mutex
	held map[string]memoryHold
}

type memoryHold struct {
	owner   *MemoryLock
	expires time.Time
}

func (h memoryHold) live() bool {
	return time.Now().Before(h.expires)
}

// NewMemoryLockFactory creates in-memory lock factory for tests and single-process runs
func NewMemoryLockFactory() *MemoryLockFactory {
	return &MemoryLockFactory{held: make(map[string]memoryHold)}
}

// CreateLease creates an in-memory lease for key
func (f *MemoryLockFactory) CreateLease(key string, ttl time.Duration) Lease {
	return &MemoryLock{factory: f, key: key, ttl: ttl}
}

// Held reports whether key is currently leased
func (f *MemoryLockFactory) Held(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.held[key]
	return ok && h.live()
}

// MemoryLock is a set-if-absent lease with expiry kept in process memory
type MemoryLock struct {
	factory *MemoryLockFactory
	key     string
	ttl     time.Duration
}

func (l *MemoryLock) TryAcquire(ctx context.Context) (bool, error) {
	f := l.factory
	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.held[l.key]; ok && h.live() {
		return false, nil
	}
	f.held[l.key] = memoryHold{owner: l, expires: time.Now().Add(l.ttl)}
	return true, nil
}

func (l *MemoryLock) Release(ctx context.Context) error {
	f := l.factory
	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.held[l.key]; ok && h.owner == l {
		delete(f.held, l.key)
	}
	return nil
}

func (l *MemoryLock) CheckLockHeld(ctx context.Context) (bool, error) {
	f := l.factory
	f.mu.Lock()
	defer f.mu.Unlock()

	h, ok := f.held[l.key]
	return ok && h.owner == l && h.live(), nil
}

func (l *MemoryLock) Key() string {
	return l.key
}
