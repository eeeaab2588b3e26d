package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brewcart/brewcart-backend/internal/memberships"
	"github.com/brewcart/brewcart-backend/internal/users"
	pkgAuth "github.com/brewcart/brewcart-backend/pkg/auth"
	"github.com/brewcart/brewcart-backend/pkg/auth/session"
	"github.com/brewcart/brewcart-backend/pkg/config"
	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

type service struct {
	users       userRepository
	memberships membershipsRepository
	superAdmins superAdminChecker
	session     sessionManager
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	now         func() time.Time
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time, rehash string) error
}

type membershipsRepository interface {
	ListUserStores(ctx context.Context, userID uuid.UUID) ([]memberships.MembershipWithStore, error)
}

type superAdminChecker interface {
	IsSuperAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error)
	Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo        userRepository
	MembershipsRepo membershipsRepository
	SuperAdmins     superAdminChecker
	SessionManager  sessionManager
	JWTConfig       config.JWTConfig
	// PasswordConfig holds the current argon2 costs; logins with older
	// hashes are upgraded in place.
	PasswordConfig config.PasswordConfig
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.MembershipsRepo == nil {
		return nil, fmt.Errorf("memberships repository is required")
	}
	if params.SuperAdmins == nil {
		return nil, fmt.Errorf("super admin checker is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		users:       params.UserRepo,
		memberships: params.MembershipsRepo,
		superAdmins: params.SuperAdmins,
		session:     params.SessionManager,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	rows, err := s.memberships.ListUserStores(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stores")
	}
	isSuperAdmin, err := s.superAdmins.IsSuperAdmin(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check super admin")
	}
	if len(rows) == 0 && !isSuperAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	stores := make([]StoreSummary, 0, len(rows))
	for _, m := range rows {
		stores = append(stores, StoreSummary{
			ID:     m.StoreID,
			Name:   m.StoreName,
			Slug:   m.StoreSlug,
			Active: m.StoreActive,
			Role:   m.Role,
		})
	}

	var activeStoreID *uuid.UUID
	var role enums.MemberRole
	if len(rows) > 0 {
		id := rows[0].StoreID
		activeStoreID = &id
		role = rows[0].Role
	}
	if isSuperAdmin {
		role = enums.MemberRoleSuperAdmin
	}

	now := s.now()
	rehash := s.rehash(user, req.Password)
	if err := s.users.RecordLogin(ctx, user.ID, now, rehash); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record login")
	}
	user.LastLoginAt = &now

	pair, err := s.issue(ctx, now, pkgAuth.AccessTokenPayload{
		UserID:        user.ID,
		ActiveStoreID: activeStoreID,
		Role:          role,
	})
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		AccessToken:   pair.AccessToken,
		RefreshToken:  pair.RefreshToken,
		Role:          role,
		ActiveStoreID: activeStoreID,
		Stores:        stores,
		User:          users.FromModel(user),
	}, nil
}

// Refresh accepts an expired access token as long as its session still holds refreshToken.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := s.parseSession(accessToken)
	if err != nil {
		return nil, err
	}
	newAccessID, newRefreshToken, err := s.session.Rotate(ctx, claims.ID, claims.UserID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}

	accessToken, err = pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		UserID:        claims.UserID,
		ActiveStoreID: claims.ActiveStoreID,
		Role:          claims.Role,
		JTI:           newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: newRefreshToken}, nil
}

func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.parseSession(accessToken)
	if err != nil {
		return err
	}
	if err := s.session.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	return nil
}

func (s *service) parseSession(accessToken string) (*pkgAuth.AccessTokenClaims, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, strings.TrimSpace(accessToken))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	return claims, nil
}

func (s *service) issue(ctx context.Context, now time.Time, payload pkgAuth.AccessTokenPayload) (*TokenPair, error) {
	payload.JTI = session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, payload.JTI, payload.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := users.NormalizeEmail(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

// rehash returns a fresh hash when the stored one predates the configured
// costs. Failure to rehash never blocks a valid login.
func (s *service) rehash(user *models.User, password string) string {
	if s.passwordCfg == (config.PasswordConfig{}) || !security.NeedsRehash(user.PasswordHash, s.passwordCfg) {
		return ""
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return ""
	}
	user.PasswordHash = hash
	return hash
}
