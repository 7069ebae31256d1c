package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLeaseSingleHolder(t *testing.T) {
	ctx := context.Background()
	f := NewMemoryLockFactory()

	a := f.CreateLease("generate_reports_lock", time.Hour)
	b := f.CreateLease("generate_reports_lock", time.Hour)

	ok, err := a.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not acquire")

	// releasing a lease we never owned must not free the key
	require.NoError(t, b.Release(ctx))
	assert.True(t, f.Held("generate_reports_lock"))

	held, _ := a.CheckLockHeld(ctx)
	assert.True(t, held)

	require.NoError(t, a.Release(ctx))
	ok, err = b.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLeaseExpires(t *testing.T) {
	ctx := context.Background()
	f := NewMemoryLockFactory()

	a := f.CreateLease("k", 10*time.Millisecond)
	ok, _ := a.TryAcquire(ctx)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	held, _ := a.CheckLockHeld(ctx)
	assert.False(t, held)

	ok, _ = f.CreateLease("k", time.Hour).TryAcquire(ctx)
	assert.True(t, ok)
}
