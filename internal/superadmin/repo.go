package superadmin

import (
	"context"
	"time"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/brewcart/brewcart-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StoreAggregate is a store row plus its catalog and sales totals.
type StoreAggregate struct {
	ID           uuid.UUID `gorm:"column:id"`
	Name         string    `gorm:"column:name"`
	Slug         string    `gorm:"column:slug"`
	OwnerID      uuid.UUID `gorm:"column:owner_id"`
	IsActive     bool      `gorm:"column:is_active"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	ProductCount int64     `gorm:"column:product_count"`
	OrderCount   int64     `gorm:"column:order_count"`
	GrossCents   int64     `gorm:"column:gross_cents"`
}

// Counts are the platform-wide totals shown on the overview.
type Counts struct {
	Stores         int64 `gorm:"column:stores"`
	ActiveStores   int64 `gorm:"column:active_stores"`
	Orders         int64 `gorm:"column:orders"`
	Products       int64 `gorm:"column:products"`
	OpenSupport    int64 `gorm:"column:open_support"`
	GrossCents     int64 `gorm:"column:gross_cents"`
	PendingOrders  int64 `gorm:"column:pending_orders"`
	CanceledOrders int64 `gorm:"column:canceled_orders"`
}

type Repository interface {
	IsSuperAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
	// Grant is idempotent; false means the user already had the role.
	Grant(ctx context.Context, userID uuid.UUID) (bool, error)
	ListStores(ctx context.Context, params pagination.Params) ([]StoreAggregate, error)
	Counts(ctx context.Context) (*Counts, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) IsSuperAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SuperAdmin{}).Where("user_id = ?", userID).Count(&count).Error
	return count > 0, err
}

func (r *repository) Grant(ctx context.Context, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&models.SuperAdmin{UserID: userID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

const storeAggregateColumns = `stores.id, stores.name, stores.slug, stores.owner_id, stores.is_active, stores.created_at,
	(SELECT COUNT(*) FROM products p WHERE p.store_id = stores.id) AS product_count,
	(SELECT COUNT(*) FROM orders o WHERE o.store_id = stores.id) AS order_count,
	(SELECT COALESCE(SUM(o.total_cents), 0) FROM orders o WHERE o.store_id = stores.id AND o.status <> ?) AS gross_cents`

func (r *repository) ListStores(ctx context.Context, params pagination.Params) ([]StoreAggregate, error) {
	q := r.db.WithContext(ctx).
		Table("stores").
		Select(storeAggregateColumns, enums.OrderStatusCancelled)
	q, err := pagination.Apply(q, params, "stores.")
	if err != nil {
		return nil, err
	}
	var rows []StoreAggregate
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Counts(ctx context.Context) (*Counts, error) {
	var out Counts
	err := r.db.WithContext(ctx).Raw(`SELECT
		(SELECT COUNT(*) FROM stores) AS stores,
		(SELECT COUNT(*) FROM stores WHERE is_active) AS active_stores,
		(SELECT COUNT(*) FROM orders) AS orders,
		(SELECT COUNT(*) FROM orders WHERE status = ?) AS pending_orders,
		(SELECT COUNT(*) FROM orders WHERE status = ?) AS canceled_orders,
		(SELECT COALESCE(SUM(total_cents), 0) FROM orders WHERE status <> ?) AS gross_cents,
		(SELECT COUNT(*) FROM products) AS products,
		(SELECT COUNT(*) FROM support_requests WHERE status IN ?) AS open_support`,
		enums.OrderStatusPending,
		enums.OrderStatusCancelled,
		enums.OrderStatusCancelled,
		[]enums.SupportRequestStatus{enums.SupportRequestStatusOpen, enums.SupportRequestStatusInProgress},
	).Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}
