package stores

import (
	"context"
	"strings"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SlugConstraint names the unique index on stores.slug.
const SlugConstraint = "stores_slug_key"

// Repository handles store persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, store *models.Store) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	FindBySlug(ctx context.Context, slug string) (*models.Store, error)
	Update(ctx context.Context, store *models.Store) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Store, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to store operations.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, store *models.Store) error {
	return r.db.WithContext(ctx).Create(store).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).Where("slug = ?", strings.ToLower(strings.TrimSpace(slug))).First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// Update writes the mutable profile columns.
func (r *repository) Update(ctx context.Context, store *models.Store) error {
	return r.db.WithContext(ctx).
		Model(store).
		Select("name", "description", "logo_url", "contact_email", "contact_phone", "updated_at").
		Updates(store).Error
}

// SetActive flips is_active and returns the updated row; gorm.ErrRecordNotFound when absent.
func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Store, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ?", id).
		UpdateColumn("is_active", active)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Store{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}
