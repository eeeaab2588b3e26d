package superadmin

import (
	"context"
	"testing"

	"github.com/brewcart/brewcart-backend/internal/orders"
	"github.com/brewcart/brewcart-backend/internal/products"
	"github.com/brewcart/brewcart-backend/internal/stores"
	"github.com/brewcart/brewcart-backend/internal/users"
	"github.com/brewcart/brewcart-backend/pkg/db"
	"github.com/brewcart/brewcart-backend/pkg/db/dbtest"
	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/outbox"
	"github.com/brewcart/brewcart-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc  Service
	repo Repository
	conn *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	txr := db.FromGorm(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Tx:        txr,
		Repo:      orders.NewRepository(conn),
		Outbox:    emitter,
		Inventory: products.NewStockReleaser(products.NewRepository(conn)),
	})
	require.NoError(t, err)
	repo := NewRepository(conn)
	svc, err := NewService(ServiceParams{
		Tx:     txr,
		Repo:   repo,
		Stores: stores.NewRepository(conn),
		Users:  users.NewRepository(conn),
		Orders: orderSvc,
		Outbox: emitter,
	})
	require.NoError(t, err)
	return &fixture{svc: svc, repo: repo, conn: conn}
}

func (f *fixture) store(t *testing.T, slug string) *models.Store {
	t.Helper()
	s := &models.Store{Name: slug, Slug: slug, OwnerID: uuid.New(), IsActive: true}
	require.NoError(t, f.conn.Create(s).Error)
	return s
}

func (f *fixture) order(t *testing.T, storeID uuid.UUID, total int, status enums.OrderStatus) {
	t.Helper()
	o := &models.Order{
		StoreID:       storeID,
		CustomerName:  "Ada",
		CustomerPhone: "5550100",
		AddressLine1:  "1 Main St",
		City:          "Springfield",
		Country:       "US",
		Status:        status,
		PaymentMethod: enums.PaymentMethodCashOnDelivery,
		PaymentStatus: enums.PaymentStatusUnpaid,
		Currency:      "USD",
		SubtotalCents: total,
		TotalCents:    total,
	}
	require.NoError(t, orders.NewRepository(f.conn).Create(context.Background(), o))
}

func TestListStoresAggregates(t *testing.T) {
	f := newFixture(t)
	a := f.store(t, "store-a")
	f.store(t, "store-b")
	require.NoError(t, f.conn.Create(&models.Product{StoreID: a.ID, Name: "Beans", PriceCents: 100, Stock: 1, IsActive: true}).Error)
	f.order(t, a.ID, 1500, enums.OrderStatusPending)
	f.order(t, a.ID, 2500, enums.OrderStatusDelivered)
	f.order(t, a.ID, 9900, enums.OrderStatusCancelled)

	page, err := f.svc.ListStores(context.Background(), pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	var got StoreSummary
	for _, s := range page.Items {
		if s.ID == a.ID {
			got = s
		}
	}
	require.EqualValues(t, 1, got.ProductCount)
	require.EqualValues(t, 3, got.OrderCount)
	require.EqualValues(t, 4000, got.GrossCents)

	first, err := f.svc.ListStores(context.Background(), pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, first.Items, 1)
	require.NotEmpty(t, first.NextCursor)
	second, err := f.svc.ListStores(context.Background(), pagination.Params{Limit: 1, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	require.NotEqual(t, first.Items[0].ID, second.Items[0].ID)
}

func TestSetStoreActive(t *testing.T) {
	f := newFixture(t)
	s := f.store(t, "store-a")
	actor := outbox.ActorRef{Role: string(enums.MemberRoleSuperAdmin)}

	dto, err := f.svc.SetStoreActive(context.Background(), actor, s.ID, false)
	require.NoError(t, err)
	require.False(t, dto.IsActive)

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventStoreUpdated).Count(&events).Error)
	require.EqualValues(t, 1, events)

	_, err = f.svc.SetStoreActive(context.Background(), actor, uuid.New(), true)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListOrdersAcrossTenants(t *testing.T) {
	f := newFixture(t)
	a := f.store(t, "store-a")
	b := f.store(t, "store-b")
	f.order(t, a.ID, 100, enums.OrderStatusPending)
	f.order(t, b.ID, 200, enums.OrderStatusShipped)
	ctx := context.Background()

	all, err := f.svc.ListOrders(ctx, OrderFilter{})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)

	scoped, err := f.svc.ListOrders(ctx, OrderFilter{StoreID: b.ID.String()})
	require.NoError(t, err)
	require.Len(t, scoped.Items, 1)
	require.Equal(t, b.ID, scoped.Items[0].StoreID)

	shipped, err := f.svc.ListOrders(ctx, OrderFilter{Status: "shipped"})
	require.NoError(t, err)
	require.Len(t, shipped.Items, 1)

	_, err = f.svc.ListOrders(ctx, OrderFilter{StoreID: "nope"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.ListOrders(ctx, OrderFilter{Status: "lost"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestOverview(t *testing.T) {
	f := newFixture(t)
	a := f.store(t, "store-a")
	inactive := f.store(t, "store-b")
	require.NoError(t, f.conn.Model(inactive).Update("is_active", false).Error)
	f.order(t, a.ID, 1000, enums.OrderStatusPending)
	f.order(t, a.ID, 500, enums.OrderStatusCancelled)
	require.NoError(t, f.conn.Create(&models.SupportRequest{Name: "x", Email: "x@example.com", Subject: "s", Message: "m", Status: enums.SupportRequestStatusOpen}).Error)
	require.NoError(t, f.conn.Create(&models.SupportRequest{Name: "y", Email: "y@example.com", Subject: "s", Message: "m", Status: enums.SupportRequestStatusClosed}).Error)

	ov, err := f.svc.Overview(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, ov.Stores)
	require.EqualValues(t, 1, ov.ActiveStores)
	require.EqualValues(t, 2, ov.Orders)
	require.EqualValues(t, 1, ov.PendingOrders)
	require.EqualValues(t, 1, ov.CanceledOrders)
	require.EqualValues(t, 1000, ov.GrossCents)
	require.EqualValues(t, 1, ov.OpenSupportRequests)
}

func TestGrantByEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, err := users.NewRepository(f.conn).Create(ctx, users.CreateUserDTO{Email: "root@example.com", PasswordHash: "x", FirstName: "R", LastName: "T"})
	require.NoError(t, err)

	require.NoError(t, f.svc.GrantByEmail(ctx, " ROOT@example.com "))
	require.NoError(t, f.svc.GrantByEmail(ctx, "root@example.com"), "granting twice is a no-op")

	ok, err := f.repo.IsSuperAdmin(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.repo.IsSuperAdmin(ctx, uuid.New())
	require.NoError(t, err)
	require.False(t, ok)

	require.True(t, pkgerrors.IsCode(f.svc.GrantByEmail(ctx, "ghost@example.com"), pkgerrors.CodeNotFound))
}
