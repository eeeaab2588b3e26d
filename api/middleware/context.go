package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/brewcart/brewcart-backend/pkg/outbox"
)

type contextKey int

const (
	ctxUserID contextKey = iota
	ctxRole
	ctxStoreID
	ctxToken
	ctxRequestID
)

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

func UserIDFromContext(ctx context.Context) string { return stringValue(ctx, ctxUserID) }

func RoleFromContext(ctx context.Context) string { return stringValue(ctx, ctxRole) }

// StoreIDFromContext is the active store carried by the access token.
func StoreIDFromContext(ctx context.Context) string { return stringValue(ctx, ctxStoreID) }

// AccessTokenFromContext returns the raw bearer token the request authenticated with.
func AccessTokenFromContext(ctx context.Context) string { return stringValue(ctx, ctxToken) }

func RequestIDFromContext(ctx context.Context) string { return stringValue(ctx, ctxRequestID) }

// UserUUID parses the authenticated user id.
func UserUUID(ctx context.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	return id, err == nil
}

// StoreUUID parses the active store id.
func StoreUUID(ctx context.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(StoreIDFromContext(ctx))
	return id, err == nil
}

// ActorFromContext builds the outbox actor for events emitted on behalf of the caller.
func ActorFromContext(ctx context.Context) outbox.ActorRef {
	actor := outbox.ActorRef{Role: RoleFromContext(ctx)}
	if id, ok := UserUUID(ctx); ok {
		actor.UserID = &id
	}
	if id, ok := StoreUUID(ctx); ok {
		actor.StoreID = &id
	}
	return actor
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return withValue(ctx, ctxUserID, userID)
}

func WithStoreID(ctx context.Context, storeID string) context.Context {
	return withValue(ctx, ctxStoreID, storeID)
}

func WithRole(ctx context.Context, role string) context.Context {
	return withValue(ctx, ctxRole, role)
}
