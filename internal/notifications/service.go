package notifications

import (
	"context"
	"time"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Service is the staff-facing notification inbox.
type Service interface {
	List(ctx context.Context, params ListParams) (*pagination.Page[NotificationDTO], error)
	MarkRead(ctx context.Context, storeID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, storeID uuid.UUID) (int64, error)
}

type inbox interface {
	List(ctx context.Context, params ListParams) ([]models.Notification, error)
	MarkRead(ctx context.Context, storeID, id uuid.UUID, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, storeID uuid.UUID, at time.Time) (int64, error)
}

type ListParams struct {
	StoreID    uuid.UUID
	UnreadOnly bool
	Pagination pagination.Params
}

type service struct {
	repo inbox
	now  func() time.Time
}

func NewService(repo inbox) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func requireStore(storeID uuid.UUID) error {
	if storeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "active store id required")
	}
	return nil
}

func (s *service) List(ctx context.Context, params ListParams) (*pagination.Page[NotificationDTO], error) {
	if err := requireStore(params.StoreID); err != nil {
		return nil, err
	}
	if _, err := pagination.ParseCursor(params.Pagination.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	page := pagination.Build(rows, params.Pagination.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})

	out := &pagination.Page[NotificationDTO]{Items: make([]NotificationDTO, len(page.Items)), NextCursor: page.NextCursor}
	for i, n := range page.Items {
		out.Items[i] = FromModel(n)
	}
	return out, nil
}

func (s *service) MarkRead(ctx context.Context, storeID, notificationID uuid.UUID) error {
	if err := requireStore(storeID); err != nil {
		return err
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	found, err := s.repo.MarkRead(ctx, storeID, notificationID, s.now())
	switch {
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	case !found:
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, storeID uuid.UUID) (int64, error) {
	if err := requireStore(storeID); err != nil {
		return 0, err
	}
	count, err := s.repo.MarkAllRead(ctx, storeID, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}
