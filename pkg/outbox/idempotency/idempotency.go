// Package idempotency guards at-most-once handling of delivered events.
// Markers live in Redis under bc:idempotency:<scope>:<id> and expire after
// the configured TTL.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var errInvalidKey = errors.New("idempotency key needs a scope and an id")

type markerStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Key names one unit of work.
type Key struct {
	Scope string
	ID    string
}

// EventKey scopes an outbox event id to the consumer handling it, so each
// subscription processes the event once.
func EventKey(consumer string, eventID uuid.UUID) Key {
	k := Key{Scope: "evt:" + strings.TrimSpace(consumer)}
	if eventID != uuid.Nil {
		k.ID = eventID.String()
	}
	return k
}

// ExternalKey covers ids minted by third parties, such as Stripe event ids.
func ExternalKey(source, externalID string) Key {
	return Key{Scope: "ext:" + strings.TrimSpace(source), ID: strings.TrimSpace(externalID)}
}

func (k Key) valid() bool {
	_, name, _ := strings.Cut(k.Scope, ":")
	return name != "" && k.ID != ""
}

type Manager struct {
	store markerStore
	ttl   time.Duration
}

// NewManager builds a guard. A zero ttl keeps markers forever.
func NewManager(store markerStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Claim marks k as taken. It reports false when an earlier delivery already
// claimed it.
func (m *Manager) Claim(ctx context.Context, k Key) (bool, error) {
	if !k.valid() {
		return false, errInvalidKey
	}
	return m.store.SetNX(ctx, m.store.IdempotencyKey(k.Scope, k.ID), "1", m.ttl)
}

// Release drops the marker so a redelivery after a failed handler runs again.
func (m *Manager) Release(ctx context.Context, k Key) error {
	if !k.valid() {
		return errInvalidKey
	}
	return m.store.Del(ctx, m.store.IdempotencyKey(k.Scope, k.ID))
}
