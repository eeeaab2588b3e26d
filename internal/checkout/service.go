package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/brewcart/brewcart-backend/internal/orders"
	"github.com/brewcart/brewcart-backend/internal/payments"
	"github.com/brewcart/brewcart-backend/internal/products"
	"github.com/brewcart/brewcart-backend/internal/settings"
	pkgcheckout "github.com/brewcart/brewcart-backend/pkg/checkout"
	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/logger"
	"github.com/brewcart/brewcart-backend/pkg/metrics"
	"github.com/brewcart/brewcart-backend/pkg/outbox"
	"github.com/brewcart/brewcart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type storeResolver interface {
	ResolveActive(ctx context.Context, slug string) (*models.Store, error)
}

type settingsReader interface {
	Get(ctx context.Context, storeID uuid.UUID) (*settings.Settings, error)
}

type orderCompensator interface {
	FailPayment(ctx context.Context, orderID uuid.UUID) error
	Track(ctx context.Context, storeID, orderID uuid.UUID, phone string) (*orders.TrackingDTO, error)
}

// Service executes storefront checkout orchestration.
type Service interface {
	PlaceOrder(ctx context.Context, slug string, input PlaceOrderInput) (*PlaceOrderResult, error)
	TrackOrder(ctx context.Context, slug string, orderID uuid.UUID, phone string) (*orders.TrackingDTO, error)
}

// PlaceOrderInput is a guest checkout request.
type PlaceOrderInput struct {
	Items         []pkgcheckout.Line `json:"items" validate:"required,min=1,dive"`
	Customer      CustomerInput      `json:"customer" validate:"required"`
	PaymentMethod string             `json:"payment_method" validate:"required"`
	Notes         *string            `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type CustomerInput struct {
	Name    string            `json:"name" validate:"required,max=120"`
	Phone   string            `json:"phone" validate:"required,e164ish"`
	Email   *string           `json:"email,omitempty" validate:"omitempty,email"`
	Address orders.AddressDTO `json:"address" validate:"required"`
}

// PlaceOrderResult carries the committed order and, for cards, the client secret to confirm with.
type PlaceOrderResult struct {
	Order   *orders.OrderDTO `json:"order"`
	Payment *payments.Intent `json:"payment,omitempty"`
}

type ServiceParams struct {
	Tx       txRunner
	Stores   storeResolver
	Settings settingsReader
	Products products.Repository
	Orders   orders.Repository
	OrderSvc orderCompensator
	Outbox   outbox.Emitter
	Gateway  payments.Gateway
	Metrics  *metrics.CommerceMetrics
	Logger   *logger.Logger
	MaxLines int
}

type service struct {
	tx       txRunner
	stores   storeResolver
	settings settingsReader
	products products.Repository
	orders   orders.Repository
	orderSvc orderCompensator
	outbox   outbox.Emitter
	gateway  payments.Gateway
	metrics  *metrics.CommerceMetrics
	logg     *logger.Logger
	maxLines int
}

// NewService builds the checkout service. Gateway may be nil when card payments are disabled.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("store resolver required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings reader required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.OrderSvc == nil {
		return nil, fmt.Errorf("order service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		tx:       params.Tx,
		stores:   params.Stores,
		settings: params.Settings,
		products: params.Products,
		orders:   params.Orders,
		orderSvc: params.OrderSvc,
		outbox:   params.Outbox,
		gateway:  params.Gateway,
		metrics:  params.Metrics,
		logg:     params.Logger,
		maxLines: params.MaxLines,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, slug string, input PlaceOrderInput) (*PlaceOrderResult, error) {
	result, err := s.placeOrder(ctx, slug, input)
	if err != nil {
		s.metrics.CheckoutRejected(string(pkgerrors.CodeOf(err)))
		return nil, err
	}
	s.metrics.OrderPlaced(string(result.Order.PaymentMethod))
	return result, nil
}

func (s *service) placeOrder(ctx context.Context, slug string, input PlaceOrderInput) (*PlaceOrderResult, error) {
	lines, err := pkgcheckout.MergeLines(input.Items, s.maxLines)
	if err != nil {
		return nil, err
	}
	if err := validateCustomer(input.Customer); err != nil {
		return nil, err
	}

	store, err := s.stores.ResolveActive(ctx, slug)
	if err != nil {
		return nil, err
	}
	current, err := s.settings.Get(ctx, store.ID)
	if err != nil {
		return nil, err
	}
	if !current.AcceptingOrders {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "store is not accepting orders")
	}
	method, err := payments.Select(*current, input.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if method.RequiresOnlineCapture() && s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card payments are not available")
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		order, txErr = s.commitOrder(ctx, tx, store, *current, method, lines, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	result := &PlaceOrderResult{Order: orders.FromModel(order)}
	if !method.RequiresOnlineCapture() {
		return result, nil
	}

	intent, err := s.gateway.CreateIntent(ctx, payments.CardCharge{
		OrderID:     order.ID,
		StoreID:     order.StoreID,
		OrderNumber: order.OrderNumber,
		AmountCents: order.TotalCents,
		Currency:    order.Currency,
	})
	if err != nil {
		s.logError(ctx, order, "checkout.intent_failed", err)
		if compErr := s.orderSvc.FailPayment(ctx, order.ID); compErr != nil {
			s.logError(ctx, order, "checkout.compensation_failed", compErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "card payment could not be started")
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// The webhook may already have settled the order, so only the reference is written here.
		_, updErr := s.orders.WithTx(tx).SetPaymentReference(ctx, order.ID, intent.Reference)
		return updErr
	}); err != nil {
		// The webhook carries the order id in metadata, so a missing reference is recoverable.
		s.logError(ctx, order, "checkout.reference_not_saved", err)
	} else {
		result.Order.PaymentReference = &intent.Reference
	}
	result.Payment = intent
	return result, nil
}

// commitOrder runs inside the checkout transaction. Any error rolls back every stock decrement.
func (s *service) commitOrder(
	ctx context.Context,
	tx *gorm.DB,
	store *models.Store,
	st settings.Settings,
	method enums.PaymentMethod,
	lines []pkgcheckout.Line,
	input PlaceOrderInput,
) (*models.Order, error) {
	productRepo := s.products.WithTx(tx)

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	found, err := productRepo.FindActiveForCheckout(ctx, store.ID, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "some products are unavailable").
			WithDetails(map[string]any{"product_ids": missing})
	}

	// Lines are already sorted by product id so concurrent checkouts lock rows in the same order.
	var short []uuid.UUID
	remaining := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		left, ok, err := productRepo.DecrementStock(ctx, store.ID, line.ProductID, line.Quantity)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}
		if !ok {
			short = append(short, line.ProductID)
			continue
		}
		remaining[line.ProductID] = left
	}
	if len(short) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock for some items").
			WithDetails(map[string]any{"product_ids": short})
	}

	items := make([]models.OrderItem, 0, len(lines))
	subtotal := 0
	for _, line := range lines {
		p := byID[line.ProductID]
		productID := p.ID
		lineTotal := p.PriceCents * line.Quantity
		subtotal += lineTotal
		items = append(items, models.OrderItem{
			ProductID:      &productID,
			ProductName:    p.Name,
			UnitPriceCents: p.PriceCents,
			Quantity:       line.Quantity,
			LineTotalCents: lineTotal,
		})
	}
	if subtotal < st.MinOrderCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is below the store minimum").
			WithDetails(map[string]any{"min_order_cents": st.MinOrderCents, "subtotal_cents": subtotal})
	}
	totals := pkgcheckout.ComputeTotals(subtotal, st.TaxRate, st.DeliveryFeeCents)

	customer := input.Customer
	order := &models.Order{
		StoreID:          store.ID,
		CustomerName:     strings.TrimSpace(customer.Name),
		CustomerPhone:    strings.TrimSpace(customer.Phone),
		CustomerEmail:    trimmedOrNil(customer.Email),
		AddressLine1:     strings.TrimSpace(customer.Address.Line1),
		AddressLine2:     trimmedOrNil(customer.Address.Line2),
		City:             strings.TrimSpace(customer.Address.City),
		Region:           trimmedOrNil(customer.Address.Region),
		PostalCode:       trimmedOrNil(customer.Address.PostalCode),
		Country:          strings.ToUpper(strings.TrimSpace(customer.Address.Country)),
		Notes:            trimmedOrNil(input.Notes),
		Status:           enums.OrderStatusPending,
		PaymentMethod:    method,
		PaymentStatus:    payments.InitialPaymentStatus(method),
		Currency:         st.Currency,
		SubtotalCents:    totals.SubtotalCents,
		TaxCents:         totals.TaxCents,
		DeliveryFeeCents: totals.DeliveryFeeCents,
		TotalCents:       totals.TotalCents,
		Items:            items,
	}
	if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
	}

	if err := s.emitOrderCreated(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := s.emitLowStock(ctx, tx, store.ID, st.LowStockThreshold, lines, byID, remaining); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) emitOrderCreated(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderCreatedEvent{
			OrderID:       order.ID,
			StoreID:       order.StoreID,
			OrderNumber:   order.OrderNumber,
			CustomerName:  order.CustomerName,
			Status:        order.Status,
			PaymentMethod: order.PaymentMethod,
			PaymentStatus: order.PaymentStatus,
			Currency:      order.Currency,
			SubtotalCents: order.SubtotalCents,
			TaxCents:      order.TaxCents,
			TotalCents:    order.TotalCents,
			ItemCount:     itemCount(order.Items),
			CreatedAt:     order.CreatedAt,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
	}
	return nil
}

// emitLowStock compares the stock left by each decrement, not the stock read before it.
func (s *service) emitLowStock(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, threshold int, lines []pkgcheckout.Line, byID map[uuid.UUID]models.Product, left map[uuid.UUID]int) error {
	for _, line := range lines {
		p := byID[line.ProductID]
		remaining := left[line.ProductID]
		if remaining > threshold {
			continue
		}
		err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductLowStock,
			AggregateType: enums.AggregateProduct,
			AggregateID:   p.ID,
			Data: payloads.ProductLowStockEvent{
				ProductID: p.ID,
				StoreID:   storeID,
				Name:      p.Name,
				Stock:     remaining,
				Threshold: threshold,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit low stock")
		}
	}
	return nil
}

func (s *service) TrackOrder(ctx context.Context, slug string, orderID uuid.UUID, phone string) (*orders.TrackingDTO, error) {
	store, err := s.stores.ResolveActive(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.orderSvc.Track(ctx, store.ID, orderID, phone)
}

func validateCustomer(c CustomerInput) error {
	details := map[string]any{}
	if strings.TrimSpace(c.Name) == "" {
		details["customer.name"] = "is required"
	}
	if !pkgcheckout.ValidPhone(c.Phone) {
		details["customer.phone"] = "must be a valid phone number"
	}
	if strings.TrimSpace(c.Address.Line1) == "" {
		details["customer.address.line1"] = "is required"
	}
	if strings.TrimSpace(c.Address.City) == "" {
		details["customer.address.city"] = "is required"
	}
	if len(strings.TrimSpace(c.Address.Country)) != 2 {
		details["customer.address.country"] = "must be a 2-letter country code"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid customer details").WithDetails(details)
	}
	return nil
}

func (s *service) logError(ctx context.Context, order *models.Order, msg string, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"store_id": order.StoreID.String(),
	})
	s.logg.Error(ctx, msg, err)
}

func itemCount(items []models.OrderItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
