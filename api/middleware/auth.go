package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/brewcart/brewcart-backend/api/responses"
	"github.com/brewcart/brewcart-backend/api/validators"
	pkgAuth "github.com/brewcart/brewcart-backend/pkg/auth"
	"github.com/brewcart/brewcart-backend/pkg/auth/session"
	"github.com/brewcart/brewcart-backend/pkg/config"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/logger"
)

// websocketTokenParam carries the token on upgrade requests, since browsers cannot set headers there.
const websocketTokenParam = "access_token"

// Auth admits requests with a valid access token whose session is still open, and seeds the
// context with the user, role, and active store it carries.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := authenticate(r, cfg, sessions)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), logg, token, claims)))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, sessions session.AccessSessionChecker) (string, *pkgAuth.AccessTokenClaims, error) {
	token, err := requestToken(r)
	if err != nil {
		return "", nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return "", nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if sessions == nil {
		return token, claims, nil
	}

	open, err := sessions.HasSession(r.Context(), claims.ID)
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	}
	if !open {
		return "", nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
	}
	return token, claims, nil
}

func withClaims(ctx context.Context, logg *logger.Logger, token string, claims *pkgAuth.AccessTokenClaims) context.Context {
	ctx = WithUserID(ctx, claims.UserID.String())
	ctx = WithRole(ctx, string(claims.Role))
	ctx = withValue(ctx, ctxToken, token)
	fields := map[string]any{"user_id": claims.UserID.String(), "actor_role": string(claims.Role)}
	if claims.ActiveStoreID != nil {
		ctx = WithStoreID(ctx, claims.ActiveStoreID.String())
		fields["store_id"] = claims.ActiveStoreID.String()
	}
	if logg != nil {
		ctx = logg.WithFields(ctx, fields)
	}
	return ctx
}

func requestToken(r *http.Request) (string, error) {
	if raw := strings.TrimSpace(r.Header.Get("Authorization")); raw != "" {
		return validators.BearerToken(raw)
	}
	if websocket.IsWebSocketUpgrade(r) {
		return validators.BearerToken(r.URL.Query().Get(websocketTokenParam))
	}
	return "", validators.ErrInvalidToken
}
