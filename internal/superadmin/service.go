package superadmin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brewcart/brewcart-backend/internal/orders"
	"github.com/brewcart/brewcart-backend/internal/stores"
	"github.com/brewcart/brewcart-backend/internal/users"
	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/outbox"
	"github.com/brewcart/brewcart-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type orderLister interface {
	List(ctx context.Context, filter orders.ListFilter) (*pagination.Page[orders.OrderDTO], error)
}

// StoreSummary is one row of the cross-tenant store list.
type StoreSummary struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	OwnerID      uuid.UUID `json:"owner_id"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	ProductCount int64     `json:"product_count"`
	OrderCount   int64     `json:"order_count"`
	GrossCents   int64     `json:"gross_cents"`
}

type Overview struct {
	Stores              int64 `json:"stores"`
	ActiveStores        int64 `json:"active_stores"`
	Orders              int64 `json:"orders"`
	PendingOrders       int64 `json:"pending_orders"`
	CanceledOrders      int64 `json:"canceled_orders"`
	GrossCents          int64 `json:"gross_cents"`
	Products            int64 `json:"products"`
	OpenSupportRequests int64 `json:"open_support_requests"`
}

// OrderFilter is the raw query of the cross-tenant order list.
type OrderFilter struct {
	StoreID    string
	Status     string
	Pagination pagination.Params
}

type Service interface {
	ListStores(ctx context.Context, params pagination.Params) (*pagination.Page[StoreSummary], error)
	SetStoreActive(ctx context.Context, actor outbox.ActorRef, storeID uuid.UUID, active bool) (*stores.StoreDTO, error)
	ListOrders(ctx context.Context, filter OrderFilter) (*pagination.Page[orders.OrderDTO], error)
	Overview(ctx context.Context) (*Overview, error)
	GrantByEmail(ctx context.Context, email string) error
}

type ServiceParams struct {
	Tx     txRunner
	Repo   Repository
	Stores stores.Repository
	Users  userLookup
	Orders orderLister
	Outbox outbox.Emitter
}

type service struct {
	tx     txRunner
	repo   Repository
	stores stores.Repository
	users  userLookup
	orders orderLister
	outbox outbox.Emitter
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case params.Repo == nil:
		return nil, fmt.Errorf("super admin repository required")
	case params.Stores == nil:
		return nil, fmt.Errorf("store repository required")
	case params.Users == nil:
		return nil, fmt.Errorf("user lookup required")
	case params.Orders == nil:
		return nil, fmt.Errorf("order lister required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		tx:     params.Tx,
		repo:   params.Repo,
		stores: params.Stores,
		users:  params.Users,
		orders: params.Orders,
		outbox: params.Outbox,
	}, nil
}

func (s *service) ListStores(ctx context.Context, params pagination.Params) (*pagination.Page[StoreSummary], error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListStores(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stores")
	}
	page := pagination.Build(rows, params.Limit, func(r StoreAggregate) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	out := pagination.Page[StoreSummary]{Items: make([]StoreSummary, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, r := range page.Items {
		out.Items = append(out.Items, StoreSummary(r))
	}
	return &out, nil
}

// SetStoreActive hides or restores a storefront. Deactivation leaves the dashboard usable.
func (s *service) SetStoreActive(ctx context.Context, actor outbox.ActorRef, storeID uuid.UUID, active bool) (*stores.StoreDTO, error) {
	var updated *models.Store
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		store, err := s.stores.WithTx(tx).SetActive(ctx, storeID, active)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update store")
		}
		updated = store
		if err := stores.EmitStoreUpdated(ctx, s.outbox, tx, &actor, store); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit store updated")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stores.FromModel(updated), nil
}

func (s *service) ListOrders(ctx context.Context, filter OrderFilter) (*pagination.Page[orders.OrderDTO], error) {
	out := orders.ListFilter{Pagination: filter.Pagination}
	if raw := strings.TrimSpace(filter.StoreID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid store_id")
		}
		out.StoreID = &id
	}
	if raw := strings.TrimSpace(filter.Status); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
		out.Status = &status
	}
	return s.orders.List(ctx, out)
}

func (s *service) Overview(ctx context.Context) (*Overview, error) {
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load platform counts")
	}
	return &Overview{
		Stores:              counts.Stores,
		ActiveStores:        counts.ActiveStores,
		Orders:              counts.Orders,
		PendingOrders:       counts.PendingOrders,
		CanceledOrders:      counts.CanceledOrders,
		GrossCents:          counts.GrossCents,
		Products:            counts.Products,
		OpenSupportRequests: counts.OpenSupport,
	}, nil
}

// GrantByEmail promotes an existing user. The role takes effect at their next login.
func (s *service) GrantByEmail(ctx context.Context, email string) error {
	normalized := users.NormalizeEmail(email)
	if normalized == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	user, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if _, err := s.repo.Grant(ctx, user.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grant super admin")
	}
	return nil
}
