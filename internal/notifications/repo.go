package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository stores in-app notifications. Every read and write is scoped by
// store id except the retention sweep.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *Repository) inStore(ctx context.Context, storeID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("store_id = ?", storeID)
}

// List returns one page ordered newest first, fetching a single extra row so
// the caller can tell whether another page exists.
func (r *Repository) List(ctx context.Context, params ListParams) ([]models.Notification, error) {
	q := r.inStore(ctx, params.StoreID)
	if params.UnreadOnly {
		q = q.Where("read_at IS NULL")
	}
	q, err := pagination.Apply(q, params.Pagination, "")
	if err != nil {
		return nil, err
	}
	var rows []models.Notification
	return rows, q.Find(&rows).Error
}

// MarkRead stamps read_at the first time. found is false when id does not
// belong to storeID; re-reading an already read row is not an error.
func (r *Repository) MarkRead(ctx context.Context, storeID, id uuid.UUID, at time.Time) (found bool, err error) {
	var current models.Notification
	err = r.inStore(ctx, storeID).Select("id", "read_at").Where("id = ?", id).Take(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil || current.ReadAt != nil {
		return err == nil, err
	}
	return true, r.inStore(ctx, storeID).
		Where("id = ? AND read_at IS NULL", id).
		UpdateColumn("read_at", at).Error
}

func (r *Repository) MarkAllRead(ctx context.Context, storeID uuid.UUID, at time.Time) (int64, error) {
	res := r.inStore(ctx, storeID).Where("read_at IS NULL").UpdateColumn("read_at", at)
	return res.RowsAffected, res.Error
}

// DeleteReadBefore prunes rows read before cutoff across all stores. Unread
// rows are kept regardless of age.
func (r *Repository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
