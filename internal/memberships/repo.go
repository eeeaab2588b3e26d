package memberships

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
)

const storeColumns = "store_memberships.*, stores.name AS store_name, stores.slug AS store_slug, stores.is_active AS store_active"

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) scoped(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.StoreMembership{}).Where("store_memberships.user_id = ?", userID)
}

// ListUserStores returns every store the user belongs to, oldest membership first.
func (r *Repository) ListUserStores(ctx context.Context, userID uuid.UUID) ([]MembershipWithStore, error) {
	var rows []membershipWithStoreRow
	if err := r.scoped(ctx, userID).
		Select(storeColumns).
		Joins("JOIN stores ON stores.id = store_memberships.store_id").
		Order("store_memberships.created_at ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]MembershipWithStore, len(rows))
	for i, row := range rows {
		out[i] = row.toDTO()
	}
	return out, nil
}

// GetMembership returns gorm.ErrRecordNotFound when the user is not a member.
func (r *Repository) GetMembership(ctx context.Context, userID, storeID uuid.UUID) (*models.StoreMembership, error) {
	membership := new(models.StoreMembership)
	if err := r.scoped(ctx, userID).Where("store_id = ?", storeID).Take(membership).Error; err != nil {
		return nil, err
	}
	return membership, nil
}

// CreateMembership rejects super_admin, which is a platform role.
func (r *Repository) CreateMembership(ctx context.Context, storeID, userID uuid.UUID, role enums.MemberRole) (*models.StoreMembership, error) {
	if !role.IsStoreRole() {
		return nil, fmt.Errorf("invalid store role %q", role)
	}
	membership := &models.StoreMembership{StoreID: storeID, UserID: userID, Role: role}
	if err := r.db.WithContext(ctx).Create(membership).Error; err != nil {
		return nil, err
	}
	return membership, nil
}

// UserHasRole reports whether the user's membership in the store carries one
// of roles. No roles means no access.
func (r *Repository) UserHasRole(ctx context.Context, userID, storeID uuid.UUID, roles ...enums.MemberRole) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}
	var hits int64
	err := r.scoped(ctx, userID).
		Where("store_id = ? AND role IN ?", storeID, roles).
		Limit(1).
		Count(&hits).Error
	return hits > 0, err
}
