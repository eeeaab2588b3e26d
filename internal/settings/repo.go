package settings

import (
	"context"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists the one-row-per-store settings table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByStoreID(ctx context.Context, storeID uuid.UUID) (*models.StoreSettings, error)
	Upsert(ctx context.Context, row *models.StoreSettings) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByStoreID(ctx context.Context, storeID uuid.UUID) (*models.StoreSettings, error) {
	var row models.StoreSettings
	if err := r.db.WithContext(ctx).Where("store_id = ?", storeID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

var upsertColumns = []string{
	"currency",
	"tax_rate",
	"delivery_fee_cents",
	"min_order_cents",
	"enabled_payment_methods",
	"accepting_orders",
	"low_stock_threshold",
	"push_enabled",
	"order_notification_email",
	"bank_transfer_instructions",
	"updated_at",
}

// Upsert inserts or overwrites the row keyed on store_id.
func (r *repository) Upsert(ctx context.Context, row *models.StoreSettings) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_id"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).
		Create(row).Error
}
