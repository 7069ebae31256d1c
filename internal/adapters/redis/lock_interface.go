package redis

import (
	"context"
	"errors"
)

// ErrLockNotAcquired is returned by helpers that require the lease to be free
var ErrLockNotAcquired = errors.New("lock is held by another worker")

// Lease defines a named, TTL-bounded mutual exclusion.
// This allows swapping implementations (Redis, in-memory).
type Lease interface {
	// TryAcquire attempts to take the lease.
	// Returns false (and no error) if it is already held.
	TryAcquire(ctx context.Context) (bool, error)

	// Release gives the lease back. Safe to call when not held.
	Release(ctx context.Context) error

	// CheckLockHeld reports whether this holder still owns the lease
	CheckLockHeld(ctx context.Context) (bool, error)

	// Key returns the lease name
	Key() string
}
