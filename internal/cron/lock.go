package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 10 * time.Minute

// Lock keeps a job from running on two cron instances at once.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LockFactory returns the lock guarding the named job.
type LockFactory func(job string) (Lock, error)

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DeleteIfEquals(ctx context.Context, key, value string) (bool, error)
	LockKey(name string) string
}

// RedisLocks hands out one lease per job under the lock namespace. A lease
// expires after ttl so a crashed holder cannot wedge the job forever.
func RedisLocks(store lockStore, ttl time.Duration) LockFactory {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return func(job string) (Lock, error) {
		if store == nil {
			return nil, errors.New("redis client required for lock")
		}
		if job == "" {
			return nil, errors.New("job name is required")
		}
		return &lease{store: store, key: store.LockKey("cron:" + job), ttl: ttl}, nil
	}
}

type lease struct {
	store lockStore
	key   string
	ttl   time.Duration
	token string
}

func (l *lease) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release drops the lease only if this holder still owns it; a lease that
// expired and was taken by another instance is left alone.
func (l *lease) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if _, err := l.store.DeleteIfEquals(ctx, l.key, token); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
