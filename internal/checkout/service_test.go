package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/brewcart/brewcart-backend/internal/orders"
	"github.com/brewcart/brewcart-backend/internal/payments"
	"github.com/brewcart/brewcart-backend/internal/products"
	"github.com/brewcart/brewcart-backend/internal/settings"
	"github.com/brewcart/brewcart-backend/internal/stores"
	pkgcheckout "github.com/brewcart/brewcart-backend/pkg/checkout"
	"github.com/brewcart/brewcart-backend/pkg/db"
	"github.com/brewcart/brewcart-backend/pkg/db/dbtest"
	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/outbox"
	"github.com/brewcart/brewcart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubGateway struct {
	charges []payments.CardCharge
	err     error
	// onCreate runs before the intent is returned, like a webhook that beats the response.
	onCreate func(ctx context.Context, charge payments.CardCharge)
}

func (g *stubGateway) CreateIntent(ctx context.Context, charge payments.CardCharge) (*payments.Intent, error) {
	g.charges = append(g.charges, charge)
	if g.err != nil {
		return nil, g.err
	}
	if g.onCreate != nil {
		g.onCreate(ctx, charge)
	}
	return &payments.Intent{Reference: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

type fixture struct {
	svc      Service
	conn     *gorm.DB
	gateway  *stubGateway
	store    *models.Store
	orderSvc orders.Service
	params   ServiceParams
}

// withProducts rebuilds the service around a different product repository.
func (f *fixture) withProducts(t *testing.T, repo products.Repository) {
	t.Helper()
	params := f.params
	params.Products = repo
	svc, err := NewService(params)
	require.NoError(t, err)
	f.svc = svc
}

// interleavedTake removes qty units from every product right after checkout reads it,
// standing in for a concurrent order that commits between the read and the decrement.
type interleavedTake struct {
	products.Repository
	qty int
}

func (r interleavedTake) WithTx(tx *gorm.DB) products.Repository {
	return interleavedTake{Repository: r.Repository.WithTx(tx), qty: r.qty}
}

func (r interleavedTake) FindActiveForCheckout(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]models.Product, error) {
	rows, err := r.Repository.FindActiveForCheckout(ctx, storeID, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range rows {
		if _, _, err := r.Repository.DecrementStock(ctx, storeID, p.ID, r.qty); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func newFixture(t *testing.T, mutate func(*settings.Settings)) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	txr := db.FromGorm(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)

	store := &models.Store{Name: "Roast House", Slug: "roast-house", OwnerID: uuid.New(), IsActive: true}
	require.NoError(t, conn.Create(store).Error)
	st := settings.Defaults(store.ID)
	st.EnabledPaymentMethods = []enums.PaymentMethod{enums.PaymentMethodCashOnDelivery, enums.PaymentMethodCard}
	if mutate != nil {
		mutate(&st)
	}
	require.NoError(t, conn.Create(st.ToRow()).Error)

	storeSvc, err := stores.NewService(txr, stores.NewRepository(conn), emitter)
	require.NoError(t, err)
	settingsSvc, err := settings.NewService(settings.ServiceParams{Tx: txr, Repo: settings.NewRepository(conn), Outbox: emitter, StripeEnabled: true})
	require.NoError(t, err)
	productRepo := products.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Tx:        txr,
		Repo:      orderRepo,
		Outbox:    emitter,
		Inventory: products.NewStockReleaser(productRepo),
	})
	require.NoError(t, err)

	gateway := &stubGateway{}
	params := ServiceParams{
		Tx:       txr,
		Stores:   storeSvc,
		Settings: settingsSvc,
		Products: productRepo,
		Orders:   orderRepo,
		OrderSvc: orderSvc,
		Outbox:   emitter,
		Gateway:  gateway,
		MaxLines: 20,
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return &fixture{svc: svc, conn: conn, gateway: gateway, store: store, orderSvc: orderSvc, params: params}
}

func (f *fixture) product(t *testing.T, name string, price, stock int) *models.Product {
	t.Helper()
	p := &models.Product{StoreID: f.store.ID, Name: name, PriceCents: price, Stock: stock, IsActive: true}
	require.NoError(t, f.conn.Create(p).Error)
	return p
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var p models.Product
	require.NoError(t, f.conn.First(&p, "id = ?", id).Error)
	return p.Stock
}

func (f *fixture) countEvents(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func validInput(method string, lines ...pkgcheckout.Line) PlaceOrderInput {
	return PlaceOrderInput{
		Items: lines,
		Customer: CustomerInput{
			Name:  "Ada Lovelace",
			Phone: "+1 555 010 0200",
			Address: orders.AddressDTO{
				Line1:   "1 Main St",
				City:    "Springfield",
				Country: "us",
			},
		},
		PaymentMethod: method,
	}
}

func TestPlaceOrderCashOnDelivery(t *testing.T) {
	f := newFixture(t, func(s *settings.Settings) {
		s.TaxRate = decimal.RequireFromString("10")
		s.DeliveryFeeCents = 250
		s.LowStockThreshold = 3
	})
	beans := f.product(t, "Beans", 1200, 5)
	mug := f.product(t, "Mug", 800, 10)

	res, err := f.svc.PlaceOrder(context.Background(), "roast-house", validInput("cash_on_delivery",
		pkgcheckout.Line{ProductID: beans.ID, Quantity: 1},
		pkgcheckout.Line{ProductID: mug.ID, Quantity: 1},
		pkgcheckout.Line{ProductID: beans.ID, Quantity: 1},
	))
	require.NoError(t, err)
	require.Nil(t, res.Payment)
	order := res.Order
	require.Equal(t, enums.OrderStatusPending, order.Status)
	require.Equal(t, enums.PaymentStatusUnpaid, order.PaymentStatus)
	require.Equal(t, 3200, order.SubtotalCents)
	require.Equal(t, 320, order.TaxCents)
	require.Equal(t, 250, order.DeliveryFeeCents)
	require.Equal(t, 3770, order.TotalCents)
	require.Equal(t, "US", order.Shipping.Country)
	require.EqualValues(t, 1001, order.OrderNumber)
	require.Len(t, order.Items, 2)

	require.Equal(t, 3, f.stock(t, beans.ID))
	require.Equal(t, 9, f.stock(t, mug.ID))
	require.EqualValues(t, 1, f.countEvents(t, enums.EventOrderCreated))
	require.EqualValues(t, 1, f.countEvents(t, enums.EventProductLowStock))
	require.Empty(t, f.gateway.charges)
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t, nil)
	beans := f.product(t, "Beans", 1200, 5)
	mug := f.product(t, "Mug", 800, 1)

	_, err := f.svc.PlaceOrder(context.Background(), "roast-house", validInput("cash_on_delivery",
		pkgcheckout.Line{ProductID: beans.ID, Quantity: 2},
		pkgcheckout.Line{ProductID: mug.ID, Quantity: 2},
	))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
	details := pkgerrors.As(err).Details().(map[string]any)
	require.Equal(t, []uuid.UUID{mug.ID}, details["product_ids"])

	require.Equal(t, 5, f.stock(t, beans.ID))
	require.Equal(t, 1, f.stock(t, mug.ID))
	var orderCount int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orderCount).Error)
	require.Zero(t, orderCount)
	require.Zero(t, f.countEvents(t, enums.EventOrderCreated))
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t, func(s *settings.Settings) { s.MinOrderCents = 5000 })
	beans := f.product(t, "Beans", 1200, 5)
	ctx := context.Background()

	_, err := f.svc.PlaceOrder(ctx, "roast-house", validInput("cash_on_delivery"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	bad := validInput("cash_on_delivery", pkgcheckout.Line{ProductID: beans.ID, Quantity: 1})
	bad.Customer.Phone = "not a phone"
	_, err = f.svc.PlaceOrder(ctx, "roast-house", bad)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.PlaceOrder(ctx, "roast-house", validInput("bank_transfer", pkgcheckout.Line{ProductID: beans.ID, Quantity: 1}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.PlaceOrder(ctx, "roast-house", validInput("cash_on_delivery", pkgcheckout.Line{ProductID: uuid.New(), Quantity: 1}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.PlaceOrder(ctx, "roast-house", validInput("cash_on_delivery", pkgcheckout.Line{ProductID: beans.ID, Quantity: 1}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Equal(t, 5, f.stock(t, beans.ID))

	_, err = f.svc.PlaceOrder(ctx, "missing-store", validInput("cash_on_delivery", pkgcheckout.Line{ProductID: beans.ID, Quantity: 1}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestPlaceOrderRejectsWhenNotAccepting(t *testing.T) {
	f := newFixture(t, func(s *settings.Settings) { s.AcceptingOrders = false })
	beans := f.product(t, "Beans", 1200, 5)

	_, err := f.svc.PlaceOrder(context.Background(), "roast-house", validInput("cash_on_delivery", pkgcheckout.Line{ProductID: beans.ID, Quantity: 1}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestPlaceOrderInactiveProductIsUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	beans := f.product(t, "Beans", 1200, 5)
	require.NoError(t, f.conn.Model(beans).Update("is_active", false).Error)

	_, err := f.svc.PlaceOrder(context.Background(), "roast-house", validInput("cash_on_delivery", pkgcheckout.Line{ProductID: beans.ID, Quantity: 1}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPlaceOrderCardCreatesIntent(t *testing.T) {
	f := newFixture(t, nil)
	beans := f.product(t, "Beans", 1200, 5)

	res, err := f.svc.PlaceOrder(context.Background(), "roast-house", validInput("card", pkgcheckout.Line{ProductID: beans.ID, Quantity: 2}))
	require.NoError(t, err)
	require.NotNil(t, res.Payment)
	require.Equal(t, "pi_test_secret", res.Payment.ClientSecret)
	require.Equal(t, enums.PaymentStatusPending, res.Order.PaymentStatus)
	require.Equal(t, "pi_test", *res.Order.PaymentReference)

	require.Len(t, f.gateway.charges, 1)
	require.Equal(t, 2400, f.gateway.charges[0].AmountCents)
	require.Equal(t, res.Order.ID, f.gateway.charges[0].OrderID)

	var stored models.Order
	require.NoError(t, f.conn.First(&stored, "id = ?", res.Order.ID).Error)
	require.Equal(t, "pi_test", *stored.PaymentReference)
}

func TestPlaceOrderCardKeepsPaymentSettledByEarlyWebhook(t *testing.T) {
	f := newFixture(t, nil)
	beans := f.product(t, "Beans", 1200, 5)
	f.gateway.onCreate = func(ctx context.Context, charge payments.CardCharge) {
		require.NoError(t, f.orderSvc.RecordPayment(ctx, charge.OrderID, "pi_test", enums.PaymentStatusPaid))
	}

	res, err := f.svc.PlaceOrder(context.Background(), "roast-house", validInput("card", pkgcheckout.Line{ProductID: beans.ID, Quantity: 1}))
	require.NoError(t, err)
	require.Equal(t, "pi_test", *res.Order.PaymentReference)

	var stored models.Order
	require.NoError(t, f.conn.First(&stored, "id = ?", res.Order.ID).Error)
	require.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)
	require.Equal(t, enums.OrderStatusConfirmed, stored.Status)
	require.Equal(t, "pi_test", *stored.PaymentReference)
}

func TestPlaceOrderLowStockUsesStockLeftAfterDecrement(t *testing.T) {
	f := newFixture(t, func(s *settings.Settings) { s.LowStockThreshold = 5 })
	beans := f.product(t, "Beans", 1200, 10)
	f.withProducts(t, interleavedTake{Repository: products.NewRepository(f.conn), qty: 3})

	_, err := f.svc.PlaceOrder(context.Background(), "roast-house", validInput("cash_on_delivery", pkgcheckout.Line{ProductID: beans.ID, Quantity: 3}))
	require.NoError(t, err)
	require.Equal(t, 4, f.stock(t, beans.ID))

	var rows []models.OutboxEvent
	require.NoError(t, f.conn.Where("event_type = ?", enums.EventProductLowStock).Find(&rows).Error)
	require.Len(t, rows, 1)
	env, _, err := outbox.DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	var evt payloads.ProductLowStockEvent
	require.NoError(t, json.Unmarshal(env.Data, &evt))
	require.Equal(t, 4, evt.Stock)
	require.Equal(t, 5, evt.Threshold)
}

func TestPlaceOrderCardFailureCompensates(t *testing.T) {
	f := newFixture(t, nil)
	f.gateway.err = errors.New("stripe unavailable")
	beans := f.product(t, "Beans", 1200, 5)

	_, err := f.svc.PlaceOrder(context.Background(), "roast-house", validInput("card", pkgcheckout.Line{ProductID: beans.ID, Quantity: 2}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	require.Equal(t, 5, f.stock(t, beans.ID))

	var stored models.Order
	require.NoError(t, f.conn.First(&stored).Error)
	require.Equal(t, enums.OrderStatusCancelled, stored.Status)
	require.Equal(t, enums.PaymentStatusFailed, stored.PaymentStatus)
	require.NotNil(t, stored.CanceledAt)
}

func TestTrackOrder(t *testing.T) {
	f := newFixture(t, nil)
	beans := f.product(t, "Beans", 1200, 5)
	ctx := context.Background()
	res, err := f.svc.PlaceOrder(ctx, "roast-house", validInput("cash_on_delivery", pkgcheckout.Line{ProductID: beans.ID, Quantity: 1}))
	require.NoError(t, err)

	tracked, err := f.svc.TrackOrder(ctx, "roast-house", res.Order.ID, "15550100200")
	require.NoError(t, err)
	require.Equal(t, res.Order.OrderNumber, tracked.OrderNumber)

	_, err = f.svc.TrackOrder(ctx, "roast-house", res.Order.ID, "0000000")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
