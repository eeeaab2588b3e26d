package support

import (
	"context"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/brewcart/brewcart-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListFilter scopes a support listing. A nil StoreID lists every request.
type ListFilter struct {
	StoreID    *uuid.UUID
	Status     *enums.SupportRequestStatus
	Pagination pagination.Params
}

// Repository persists support requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, req *models.SupportRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SupportRequest, error)
	List(ctx context.Context, filter ListFilter) ([]models.SupportRequest, error)
	Update(ctx context.Context, req *models.SupportRequest) error
	CountOpen(ctx context.Context) (int64, error)
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

func (r *repository) Create(ctx context.Context, req *models.SupportRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SupportRequest, error) {
	var req models.SupportRequest
	if err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.SupportRequest, error) {
	q := r.db.WithContext(ctx).Model(&models.SupportRequest{})
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
	var rows []models.SupportRequest
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update writes the staff-editable columns.
func (r *repository) Update(ctx context.Context, req *models.SupportRequest) error {
	return r.db.WithContext(ctx).
		Model(req).
		Select("status", "admin_notes", "resolved_at", "updated_at").
		Updates(req).Error
}

// CountOpen counts requests that still need attention.
func (r *repository) CountOpen(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.SupportRequest{}).
		Where("status IN ?", []enums.SupportRequestStatus{enums.SupportRequestStatusOpen, enums.SupportRequestStatusInProgress}).
		Count(&n).Error
	return n, err
}
