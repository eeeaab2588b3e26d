package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brewcart/brewcart-backend/api/responses"
	"github.com/brewcart/brewcart-backend/pkg/auth"
	"github.com/brewcart/brewcart-backend/pkg/auth/session"
	"github.com/brewcart/brewcart-backend/pkg/config"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var authCfg = config.JWTConfig{Secret: "secret", Issuer: "brewcart", ExpirationMinutes: 60}

type sessionStub struct {
	open bool
	err  error
}

func (s sessionStub) HasSession(context.Context, string) (bool, error) {
	return s.open, s.err
}

type seen struct {
	user, role, store, token string
}

func guarded(t *testing.T, sessions session.AccessSessionChecker) (http.Handler, *seen) {
	t.Helper()
	got := &seen{}
	h := Auth(authCfg, sessions, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		*got = seen{
			user:  UserIDFromContext(ctx),
			role:  RoleFromContext(ctx),
			store: StoreIDFromContext(ctx),
			token: AccessTokenFromContext(ctx),
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	return h, got
}

func mint(t *testing.T, role enums.MemberRole, storeID *uuid.UUID) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, err := auth.MintAccessToken(authCfg, time.Now(), auth.AccessTokenPayload{
		UserID:        userID,
		ActiveStoreID: storeID,
		Role:          role,
		JTI:           session.NewAccessID(),
	})
	require.NoError(t, err)
	return token, userID
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body responses.Failure
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestAuthRejects(t *testing.T) {
	expired, err := auth.MintAccessToken(authCfg, time.Now().Add(-2*time.Hour), auth.AccessTokenPayload{
		UserID: uuid.New(), Role: enums.MemberRoleSuperAdmin, JTI: session.NewAccessID(),
	})
	require.NoError(t, err)
	storeID := uuid.New()
	valid, _ := mint(t, enums.MemberRoleOwner, &storeID)

	cases := []struct {
		name     string
		header   string
		sessions session.AccessSessionChecker
		status   int
		code     string
	}{
		{"missing header", "", sessionStub{open: true}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage token", "Bearer invalid", sessionStub{open: true}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"expired token", "Bearer " + expired, sessionStub{open: true}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"revoked session", "Bearer " + valid, sessionStub{open: false}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"session store down", "Bearer " + valid, sessionStub{err: errors.New("redis down")}, http.StatusServiceUnavailable, "DEPENDENCY_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, got := guarded(t, tc.sessions)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, errorCode(t, rec))
			assert.Empty(t, got.user, "handler must not run")
		})
	}
}

func TestAuthSeedsContextFromClaims(t *testing.T) {
	storeID := uuid.New()
	cases := []struct {
		name  string
		role  enums.MemberRole
		store *uuid.UUID
		want  string
	}{
		{"store member", enums.MemberRoleOwner, &storeID, storeID.String()},
		{"super admin without store", enums.MemberRoleSuperAdmin, nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, userID := mint(t, tc.role, tc.store)
			h, got := guarded(t, sessionStub{open: true})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, seen{user: userID.String(), role: string(tc.role), store: tc.want, token: token}, *got)
		})
	}
}

func TestAuthAcceptsQueryTokenOnlyForWebsocketUpgrade(t *testing.T) {
	storeID := uuid.New()
	token, _ := mint(t, enums.MemberRoleStaff, &storeID)
	h, got := guarded(t, sessionStub{open: true})
	target := "/api/v1/admin/realtime?access_token=" + token

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	upgrade := httptest.NewRequest(http.MethodGet, target, nil)
	upgrade.Header.Set("Connection", "Upgrade")
	upgrade.Header.Set("Upgrade", "websocket")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, upgrade)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, token, got.token)
}
