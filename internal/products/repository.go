package products

import (
	"context"
	"strings"
	"time"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListFilter narrows a store's catalog listing.
type ListFilter struct {
	StoreID    uuid.UUID
	Query      string
	Category   string
	Active     *bool
	Pagination pagination.Params
}

// Repository defines catalog and stock persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, storeID, id uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, storeID, id uuid.UUID) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]models.Product, error)
	// FindActiveForCheckout loads the sellable products of a store in ascending id order.
	FindActiveForCheckout(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]models.Product, error)
	// AdjustStock adds delta to stock unless the result would go negative.
	// It returns the stock left after the update; ok is false when no row changed.
	AdjustStock(ctx context.Context, storeID, id uuid.UUID, delta int) (remaining int, ok bool, err error)
	// DecrementStock removes qty only when at least qty units remain.
	DecrementStock(ctx context.Context, storeID, id uuid.UUID, qty int) (remaining int, ok bool, err error)
	// ReleaseStock returns qty units to a product. Missing products are ignored.
	ReleaseStock(ctx context.Context, id uuid.UUID, qty int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) FindByID(ctx context.Context, storeID, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Where("id = ? AND store_id = ?", id, storeID).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Model(product).
		Select("name", "description", "sku", "category", "price_cents", "compare_at_price_cents", "stock", "image_urls", "is_active", "updated_at").
		Updates(product).Error
}

func (r *repository) Delete(ctx context.Context, storeID, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND store_id = ?", id, storeID).
		Delete(&models.Product{})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{}).Where("store_id = ?", filter.StoreID)
	if term := strings.TrimSpace(filter.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(COALESCE(sku, '')) LIKE ?)", like, like)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		q = q.Where("category = ?", category)
	}
	if filter.Active != nil {
		q = q.Where("is_active = ?", *filter.Active)
	}
	q, err := pagination.Apply(q, filter.Pagination, "")
	if err != nil {
		return nil, err
	}
	var rows []models.Product
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindActiveForCheckout(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND is_active = ? AND id IN ?", storeID, true, ids).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) AdjustStock(ctx context.Context, storeID, id uuid.UUID, delta int) (int, bool, error) {
	return r.updateStock(ctx,
		`UPDATE products SET stock = stock + ?, updated_at = ? WHERE id = ? AND store_id = ? AND stock + ? >= 0 RETURNING stock`,
		delta, time.Now().UTC(), id, storeID, delta,
	)
}

func (r *repository) DecrementStock(ctx context.Context, storeID, id uuid.UUID, qty int) (int, bool, error) {
	return r.updateStock(ctx,
		`UPDATE products SET stock = stock - ?, updated_at = ? WHERE id = ? AND store_id = ? AND stock >= ? RETURNING stock`,
		qty, time.Now().UTC(), id, storeID, qty,
	)
}

// updateStock runs a guarded stock update and reads the new value from RETURNING.
func (r *repository) updateStock(ctx context.Context, query string, args ...any) (int, bool, error) {
	var left []int
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&left).Error; err != nil {
		return 0, false, err
	}
	if len(left) != 1 {
		return 0, false, nil
	}
	return left[0], true, nil
}

func (r *repository) ReleaseStock(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE products SET stock = stock + ?, updated_at = ? WHERE id = ?`,
		qty, time.Now().UTC(), id,
	).Error
}
