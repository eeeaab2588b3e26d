package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryLocks struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryLocks() *memoryLocks {
	return &memoryLocks{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryLocks) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryLocks) DeleteIfEquals(_ context.Context, key, value string) (bool, error) {
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func (m *memoryLocks) LockKey(name string) string { return "bc:lock:" + name }

func TestRedisLocksArePerJob(t *testing.T) {
	store := newMemoryLocks()
	factory := RedisLocks(store, time.Minute)
	ctx := context.Background()

	a1, err := factory("a")
	require.NoError(t, err)
	a2, err := factory("a")
	require.NoError(t, err)
	b, err := factory("b")
	require.NoError(t, err)

	ok, err := a1.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = a2.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, time.Minute, store.ttls["bc:lock:cron:a"])

	// a holder that never acquired cannot free someone else's lease
	require.NoError(t, a2.Release(ctx))
	require.Contains(t, store.values, "bc:lock:cron:a")
	require.NoError(t, a1.Release(ctx))
	require.NotContains(t, store.values, "bc:lock:cron:a")
}

func TestExpiredLeaseIsNotStolenBack(t *testing.T) {
	store := newMemoryLocks()
	factory := RedisLocks(store, 0)
	ctx := context.Background()

	first, err := factory("unpaid_orders")
	require.NoError(t, err)
	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, defaultLockTTL, store.ttls["bc:lock:cron:unpaid_orders"])

	// simulate expiry and takeover by another instance
	delete(store.values, "bc:lock:cron:unpaid_orders")
	second, err := factory("unpaid_orders")
	require.NoError(t, err)
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, first.Release(ctx))
	require.Contains(t, store.values, "bc:lock:cron:unpaid_orders")
}

func TestRedisLocksRequireJobName(t *testing.T) {
	_, err := RedisLocks(newMemoryLocks(), time.Minute)("")
	require.Error(t, err)
}
