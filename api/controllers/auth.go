package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/brewcart/brewcart-backend/api/middleware"
	"github.com/brewcart/brewcart-backend/api/responses"
	"github.com/brewcart/brewcart-backend/api/validators"
	"github.com/brewcart/brewcart-backend/internal/auth"
	pkgAuth "github.com/brewcart/brewcart-backend/pkg/auth"
	"github.com/brewcart/brewcart-backend/pkg/config"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/logger"
)

// bodyAction decodes a JSON body of type T and hands it to act. write picks
// the success status.
func bodyAction[T, R any](logg *logger.Logger, act func(context.Context, *http.Request, T) (R, error), write func(http.ResponseWriter, any)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body T
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := act(r.Context(), r, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		write(w, result)
	}
}

func writeOK(w http.ResponseWriter, v any)      { responses.WriteSuccess(w, v) }
func writeCreated(w http.ResponseWriter, v any) { responses.WriteCreated(w, v) }

// AuthRegister onboards a store owner and their first store.
func AuthRegister(svc auth.RegisterService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler("register service", logg)
	}
	return bodyAction(logg, func(ctx context.Context, _ *http.Request, req auth.RegisterRequest) (*auth.RegisterResponse, error) {
		return svc.Register(ctx, req)
	}, writeCreated)
}

// AuthLogin exchanges credentials for an access and refresh token pair.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler("auth service", logg)
	}
	return bodyAction(logg, func(ctx context.Context, _ *http.Request, req auth.LoginRequest) (*auth.LoginResponse, error) {
		return svc.Login(ctx, req)
	}, writeOK)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthRefresh rotates the refresh token. The bearer token may be expired but
// must still carry a valid signature.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler("auth service", logg)
	}
	return bodyAction(logg, func(ctx context.Context, r *http.Request, req refreshRequest) (*auth.TokenPair, error) {
		access, err := bearer(r)
		if err != nil {
			return nil, err
		}
		return svc.Refresh(ctx, access, req.RefreshToken)
	}, writeOK)
}

// AuthLogout revokes the session tied to the presented access token.
// Expired access tokens are accepted so clients can always sign out.
func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler("auth service", logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := bearer(r)
		if err == nil {
			err = svc.Logout(r.Context(), access)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

type switchStoreRequest struct {
	StoreID      string `json:"store_id" validate:"required,uuid"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthSwitchStore re-scopes the caller's session to another store.
func AuthSwitchStore(svc auth.SwitchStoreService, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler("switch store service", logg)
	}
	return bodyAction(logg, func(ctx context.Context, _ *http.Request, req switchStoreRequest) (*auth.SwitchStoreResult, error) {
		storeID, err := uuid.Parse(req.StoreID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store id")
		}
		claims, err := pkgAuth.ParseAccessToken(cfg, middleware.AccessTokenFromContext(ctx))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
		}
		return svc.Switch(ctx, auth.SwitchStoreInput{
			UserID:        claims.UserID,
			StoreID:       storeID,
			Role:          enums.MemberRole(middleware.RoleFromContext(ctx)),
			AccessTokenID: claims.ID,
			RefreshToken:  req.RefreshToken,
		})
	}, writeOK)
}

func bearer(r *http.Request) (string, error) {
	token, err := validators.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return token, nil
}
