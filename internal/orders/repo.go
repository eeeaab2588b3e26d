package orders

import (
	"context"
	"time"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/brewcart/brewcart-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListFilter scopes an order listing. A nil StoreID lists across tenants.
type ListFilter struct {
	StoreID    *uuid.UUID
	Status     *enums.OrderStatus
	Pagination pagination.Params
}

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Create inserts the order and its items, then reads back the generated order number.
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, storeID, id uuid.UUID) (*models.Order, error)
	// FindByIDAnyStore is for trusted callers such as payment webhooks.
	FindByIDAnyStore(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, error)
	// TransitionStatus is a compare-and-set on status; false means no row matched.
	TransitionStatus(ctx context.Context, storeID, id uuid.UUID, next enums.OrderStatus, from []enums.OrderStatus, at time.Time) (bool, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, status enums.PaymentStatus, reference *string, from []enums.PaymentStatus) (bool, error)
	// SetPaymentReference stores the processor reference without touching payment status.
	SetPaymentReference(ctx context.Context, id uuid.UUID, reference string) (bool, error)
	FindStaleUnpaid(ctx context.Context, method enums.PaymentMethod, cutoff time.Time, limit int) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to order persistence.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Omit("Items").Create(order).Error; err != nil {
		return err
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	if len(order.Items) > 0 {
		if err := conn.Create(&order.Items).Error; err != nil {
			return err
		}
	}
	return conn.Raw(`SELECT order_number FROM orders WHERE id = ?`, order.ID).Scan(&order.OrderNumber).Error
}

func (r *repository) FindByID(ctx context.Context, storeID, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("id = ? AND store_id = ?", id, storeID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIDAnyStore(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.StoreID != nil {
		q = q.Where("store_id = ?", *filter.StoreID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	q, err := pagination.Apply(q, filter.Pagination, "")
	if err != nil {
		return nil, err
	}
	var rows []models.Order
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) TransitionStatus(ctx context.Context, storeID, id uuid.UUID, next enums.OrderStatus, from []enums.OrderStatus, at time.Time) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	updates := map[string]any{"status": next, "updated_at": at}
	if next == enums.OrderStatusCancelled {
		updates["canceled_at"] = at
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND store_id = ? AND status IN ?", id, storeID, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

func (r *repository) UpdatePayment(ctx context.Context, id uuid.UUID, status enums.PaymentStatus, reference *string, from []enums.PaymentStatus) (bool, error) {
	updates := map[string]any{"payment_status": status, "updated_at": time.Now().UTC()}
	if reference != nil {
		updates["payment_reference"] = *reference
	}
	q := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("payment_status IN ?", from)
	}
	res := q.Updates(updates)
	return res.RowsAffected == 1, res.Error
}

func (r *repository) SetPaymentReference(ctx context.Context, id uuid.UUID, reference string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{"payment_reference": reference, "updated_at": time.Now().UTC()})
	return res.RowsAffected == 1, res.Error
}

func (r *repository) FindStaleUnpaid(ctx context.Context, method enums.PaymentMethod, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND payment_method = ? AND payment_status <> ? AND created_at < ?",
			enums.OrderStatusPending, method, enums.PaymentStatusPaid, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
