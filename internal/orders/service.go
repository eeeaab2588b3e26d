package orders

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/logger"
	"github.com/brewcart/brewcart-backend/pkg/outbox"
	"github.com/brewcart/brewcart-backend/pkg/outbox/payloads"
	"github.com/brewcart/brewcart-backend/pkg/pagination"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	expiryBatchSize = 100

	ReasonPaymentTimeout = "payment_timeout"
	ReasonPaymentFailed  = "payment_failed"
	ReasonPaymentPaid    = "payment_succeeded"
)

var nonDigits = regexp.MustCompile(`\D`)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// InventoryReleaser returns stock when an order is cancelled.
type InventoryReleaser interface {
	Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

// IntentCanceler voids an outstanding card authorization. Failures are logged only.
type IntentCanceler interface {
	CancelIntent(ctx context.Context, reference string) error
}

// Service defines order operations for the dashboard, storefront tracking, payments and cron.
type Service interface {
	List(ctx context.Context, filter ListFilter) (*pagination.Page[OrderDTO], error)
	Get(ctx context.Context, storeID, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor outbox.ActorRef, storeID, orderID uuid.UUID, status string) (*OrderDTO, error)
	Track(ctx context.Context, storeID, orderID uuid.UUID, phone string) (*TrackingDTO, error)
	// RecordPayment applies a processor outcome to a card order.
	RecordPayment(ctx context.Context, orderID uuid.UUID, reference string, status enums.PaymentStatus) error
	// FailPayment compensates an order whose card intent could not be created.
	FailPayment(ctx context.Context, orderID uuid.UUID) error
	ExpireStaleUnpaid(ctx context.Context, cutoff time.Time) (int, error)
}

type ServiceParams struct {
	Tx        txRunner
	Repo      Repository
	Outbox    outbox.Emitter
	Inventory InventoryReleaser
	Intents   IntentCanceler
	Logger    *logger.Logger
}

type service struct {
	tx        txRunner
	repo      Repository
	outbox    outbox.Emitter
	inventory InventoryReleaser
	intents   IntentCanceler
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory releaser required")
	}
	return &service{
		tx:        params.Tx,
		repo:      params.Repo,
		outbox:    params.Outbox,
		inventory: params.Inventory,
		intents:   params.Intents,
		logg:      params.Logger,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*pagination.Page[OrderDTO], error) {
	if _, err := pagination.ParseCursor(filter.Pagination.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page := pagination.Build(rows, filter.Pagination.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	out := pagination.Page[OrderDTO]{Items: make([]OrderDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, *FromModel(&page.Items[i]))
	}
	return &out, nil
}

func (s *service) Get(ctx context.Context, storeID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, storeID, orderID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return FromModel(order), nil
}

func (s *service) UpdateStatus(ctx context.Context, actor outbox.ActorRef, storeID, orderID uuid.UUID, status string) (*OrderDTO, error) {
	next, err := enums.ParseOrderStatus(status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": status})
	}

	var (
		result   *models.Order
		canceled bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, storeID, orderID)
		if err != nil {
			return mapLoadError(err)
		}
		if order.Status == next {
			result = order
			return nil
		}
		previous := order.Status
		if !previous.CanTransitionTo(next) {
			return stateConflict(previous, next)
		}

		at := s.now()
		changed, err := repo.TransitionStatus(ctx, storeID, orderID, next, enums.OrderStatusPredecessors(next), at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !changed {
			// Lost a race with a concurrent update; report against the row as it is now.
			current, err := repo.FindByID(ctx, storeID, orderID)
			if err != nil {
				return mapLoadError(err)
			}
			if current.Status == next {
				result = current
				return nil
			}
			return stateConflict(current.Status, next)
		}

		order.Status = next
		order.UpdatedAt = at
		if next == enums.OrderStatusCancelled {
			order.CanceledAt = &at
			if err := s.releaseItems(ctx, tx, order); err != nil {
				return err
			}
			canceled = previous == enums.OrderStatusPending
		}
		result = order
		return s.emitStatusChanged(ctx, tx, &actor, order, previous, "")
	})
	if err != nil {
		return nil, err
	}
	if canceled {
		s.cancelIntent(ctx, result)
	}
	return FromModel(result), nil
}

func (s *service) Track(ctx context.Context, storeID, orderID uuid.UUID, phone string) (*TrackingDTO, error) {
	order, err := s.repo.FindByID(ctx, storeID, orderID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	want := nonDigits.ReplaceAllString(order.CustomerPhone, "")
	got := nonDigits.ReplaceAllString(phone, "")
	if got == "" || got != want {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return TrackingFromModel(order), nil
}

// unsettledPayments are the payment states a processor result may overwrite.
var unsettledPayments = []enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusUnpaid, enums.PaymentStatusFailed}

func (s *service) RecordPayment(ctx context.Context, orderID uuid.UUID, reference string, status enums.PaymentStatus) error {
	if status != enums.PaymentStatusPaid && status != enums.PaymentStatusFailed {
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment status")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDAnyStore(ctx, orderID)
		if err != nil {
			return mapLoadError(err)
		}
		if order.PaymentMethod != enums.PaymentMethodCard {
			return pkgerrors.New(pkgerrors.CodeValidation, "order is not a card order")
		}
		if order.PaymentStatus == status || order.PaymentStatus.IsSettled() {
			return nil
		}

		changed, err := repo.UpdatePayment(ctx, order.ID, status, &reference, unsettledPayments)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		if !changed {
			return nil
		}
		order.PaymentStatus = status
		order.PaymentReference = &reference

		if err := s.emitPaymentUpdated(ctx, tx, order); err != nil {
			return err
		}
		if status != enums.PaymentStatusPaid || order.Status != enums.OrderStatusPending {
			return nil
		}

		confirmed, err := repo.TransitionStatus(ctx, order.StoreID, order.ID, enums.OrderStatusConfirmed,
			[]enums.OrderStatus{enums.OrderStatusPending}, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm paid order")
		}
		if !confirmed {
			return nil
		}
		order.Status = enums.OrderStatusConfirmed
		return s.emitStatusChanged(ctx, tx, nil, order, enums.OrderStatusPending, ReasonPaymentPaid)
	})
}

func (s *service) FailPayment(ctx context.Context, orderID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDAnyStore(ctx, orderID)
		if err != nil {
			return mapLoadError(err)
		}
		if order.PaymentStatus.IsSettled() {
			return nil
		}
		if _, err := repo.UpdatePayment(ctx, order.ID, enums.PaymentStatusFailed, nil, unsettledPayments); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
		}
		order.PaymentStatus = enums.PaymentStatusFailed
		if err := s.emitPaymentUpdated(ctx, tx, order); err != nil {
			return err
		}
		return s.cancelInTx(ctx, tx, repo, order, ReasonPaymentFailed)
	})
}

func (s *service) ExpireStaleUnpaid(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.repo.FindStaleUnpaid(ctx, enums.PaymentMethodCard, cutoff, expiryBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find stale unpaid orders")
	}

	var (
		expired int
		errs    error
	)
	for i := range stale {
		order := stale[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.cancelInTx(ctx, tx, s.repo.WithTx(tx), &order, ReasonPaymentTimeout)
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if order.Status == enums.OrderStatusCancelled {
			expired++
			s.cancelIntent(ctx, &order)
		}
	}
	return expired, errs
}

// cancelInTx cancels a pending order and releases its stock. A lost race leaves the order untouched.
func (s *service) cancelInTx(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, reason string) error {
	previous := order.Status
	at := s.now()
	changed, err := repo.TransitionStatus(ctx, order.StoreID, order.ID, enums.OrderStatusCancelled,
		[]enums.OrderStatus{enums.OrderStatusPending}, at)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}
	if !changed {
		return nil
	}
	order.Status = enums.OrderStatusCancelled
	order.CanceledAt = &at
	if err := s.releaseItems(ctx, tx, order); err != nil {
		return err
	}
	return s.emitStatusChanged(ctx, tx, nil, order, previous, reason)
}

func (s *service) releaseItems(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	for _, item := range order.Items {
		if item.ProductID == nil {
			continue
		}
		if err := s.inventory.Release(ctx, tx, *item.ProductID, item.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release stock")
		}
	}
	return nil
}

func (s *service) cancelIntent(ctx context.Context, order *models.Order) {
	if s.intents == nil || order == nil || order.PaymentMethod != enums.PaymentMethodCard || order.PaymentReference == nil {
		return
	}
	if err := s.intents.CancelIntent(ctx, *order.PaymentReference); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"order_id":          order.ID.String(),
			"payment_reference": *order.PaymentReference,
			"error":             err.Error(),
		}), "orders.cancel_intent_failed")
	}
}

func (s *service) emitStatusChanged(ctx context.Context, tx *gorm.DB, actor *outbox.ActorRef, order *models.Order, previous enums.OrderStatus, reason string) error {
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:        order.ID,
			StoreID:        order.StoreID,
			OrderNumber:    order.OrderNumber,
			PreviousStatus: previous,
			Status:         order.Status,
			Reason:         reason,
			ChangedAt:      s.now(),
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order status changed")
	}
	return nil
}

func (s *service) emitPaymentUpdated(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	reference := ""
	if order.PaymentReference != nil {
		reference = *order.PaymentReference
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderPaymentUpdated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderPaymentUpdatedEvent{
			OrderID:          order.ID,
			StoreID:          order.StoreID,
			PaymentStatus:    order.PaymentStatus,
			PaymentReference: reference,
			TotalCents:       order.TotalCents,
			Currency:         order.Currency,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment updated")
	}
	return nil
}

func stateConflict(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
		WithDetails(map[string]any{"from": from, "to": to})
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
