package auth

import (
	"context"
	"errors"
	"time"

	pkgAuth "github.com/brewcart/brewcart-backend/pkg/auth"
	"github.com/brewcart/brewcart-backend/pkg/auth/session"
	"github.com/brewcart/brewcart-backend/pkg/config"
	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SwitchStoreInput captures the data required to switch stores.
type SwitchStoreInput struct {
	UserID        uuid.UUID
	StoreID       uuid.UUID
	Role          enums.MemberRole
	AccessTokenID string
	RefreshToken  string
}

// SwitchStoreResult returns the tokens issued after switching stores.
type SwitchStoreResult struct {
	TokenPair
	Role  enums.MemberRole `json:"role"`
	Store StoreSummary     `json:"store"`
}

type switchMembershipsRepository interface {
	GetMembership(ctx context.Context, userID, storeID uuid.UUID) (*models.StoreMembership, error)
}

type storeLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

type switchSessionRotator interface {
	Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (string, string, error)
}

type switchStoreService struct {
	memberships switchMembershipsRepository
	stores      storeLookup
	session     switchSessionRotator
	jwtCfg      config.JWTConfig
}

// SwitchStoreServiceParams bundles dependencies for the switch flow.
type SwitchStoreServiceParams struct {
	MembershipsRepo switchMembershipsRepository
	StoreRepo       storeLookup
	SessionManager  switchSessionRotator
	JWTConfig       config.JWTConfig
}

// SwitchStoreService is the interface exposed to the controller.
type SwitchStoreService interface {
	Switch(ctx context.Context, input SwitchStoreInput) (*SwitchStoreResult, error)
}

// NewSwitchStoreService constructs the service.
func NewSwitchStoreService(params SwitchStoreServiceParams) (SwitchStoreService, error) {
	if params.MembershipsRepo == nil {
		return nil, errors.New("memberships repository required")
	}
	if params.StoreRepo == nil {
		return nil, errors.New("store repository required")
	}
	if params.SessionManager == nil {
		return nil, errors.New("session manager required")
	}
	return &switchStoreService{
		memberships: params.MembershipsRepo,
		stores:      params.StoreRepo,
		session:     params.SessionManager,
		jwtCfg:      params.JWTConfig,
	}, nil
}

// Switch re-scopes the session to another store. Super admins may switch into any store and keep their role.
func (s *switchStoreService) Switch(ctx context.Context, input SwitchStoreInput) (*SwitchStoreResult, error) {
	store, err := s.stores.FindByID(ctx, input.StoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
	}

	role := enums.MemberRoleSuperAdmin
	if input.Role != enums.MemberRoleSuperAdmin {
		membership, err := s.memberships.GetMembership(ctx, input.UserID, input.StoreID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store membership required")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup membership")
		}
		role = membership.Role
	}

	newAccessID, newRefreshToken, err := s.session.Rotate(ctx, input.AccessTokenID, input.UserID, input.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}

	storeID := store.ID
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID:        input.UserID,
		ActiveStoreID: &storeID,
		Role:          role,
		JTI:           newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &SwitchStoreResult{
		TokenPair: TokenPair{AccessToken: accessToken, RefreshToken: newRefreshToken},
		Role:      role,
		Store: StoreSummary{
			ID:     store.ID,
			Name:   store.Name,
			Slug:   store.Slug,
			Active: store.IsActive,
			Role:   role,
		},
	}, nil
}
