package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/brewcart/brewcart-backend/internal/memberships"
	"github.com/brewcart/brewcart-backend/internal/stores"
	"github.com/brewcart/brewcart-backend/internal/users"
	"github.com/brewcart/brewcart-backend/pkg/config"
	"github.com/brewcart/brewcart-backend/pkg/db"
	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegisterService handles the onboarding transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type settingsSeeder interface {
	SeedDefaults(ctx context.Context, tx *gorm.DB, storeID uuid.UUID) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	Tx             txRunner
	Settings       settingsSeeder
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	tx          txRunner
	settings    settingsSeeder
	passwordCfg config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Settings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settings seeder required")
	}
	return &registerService{
		tx:          params.Tx,
		settings:    params.Settings,
		passwordCfg: params.PasswordConfig,
	}, nil
}

// Register creates the owner, the store, the owner membership, and default settings atomically.
func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	storeName := strings.TrimSpace(req.StoreName)
	if storeName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name is required")
	}
	slug := stores.Slugify(storeName)
	if req.StoreSlug != nil && strings.TrimSpace(*req.StoreSlug) != "" {
		slug = strings.ToLower(strings.TrimSpace(*req.StoreSlug))
	}
	if !stores.ValidSlug(slug) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid store slug").
			WithDetails(map[string]any{"store_slug": slug})
	}
	if err := security.CheckStrength(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var out RegisterResponse
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)
		storeRepo := stores.NewRepository(tx)
		membershipRepo := memberships.NewRepository(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}
		exists, err := storeRepo.SlugExists(ctx, slug)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check store slug")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "store slug already taken").
				WithDetails(map[string]any{"store_slug": slug})
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Phone:        req.Phone,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		store := &models.Store{
			Name:     storeName,
			Slug:     slug,
			OwnerID:  user.ID,
			IsActive: true,
		}
		if err := storeRepo.Create(ctx, store); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "store slug already taken").
					WithDetails(map[string]any{"store_slug": slug})
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create store")
		}

		if _, err := membershipRepo.CreateMembership(ctx, store.ID, user.ID, enums.MemberRoleOwner); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create membership")
		}
		if err := s.settings.SeedDefaults(ctx, tx, store.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seed store settings")
		}

		out.User = users.FromModel(user)
		out.Store = stores.FromModel(store)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
