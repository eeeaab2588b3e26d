package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/logger"
	"github.com/brewcart/brewcart-backend/pkg/outbox/idempotency"
	pkgstripe "github.com/brewcart/brewcart-backend/pkg/stripe"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
)

const idempotencySource = "stripe"

type paymentRecorder interface {
	RecordPayment(ctx context.Context, orderID uuid.UUID, reference string, status enums.PaymentStatus) error
}

type eventGuard interface {
	Claim(ctx context.Context, key idempotency.Key) (bool, error)
	Release(ctx context.Context, key idempotency.Key) error
}

type ServiceParams struct {
	Payments paymentRecorder
	Guard    eventGuard
	Logger   *logger.Logger
}

// Service applies verified Stripe events to orders.
type Service struct {
	payments paymentRecorder
	guard    eventGuard
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment recorder required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	return &Service{
		payments: params.Payments,
		guard:    params.Guard,
		logg:     params.Logger,
	}, nil
}

// HandleEvent processes event once per Stripe event id. A failed run releases the
// marker so Stripe's retry is handled again.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	if event.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event id required")
	}

	key := idempotency.ExternalKey(idempotencySource, event.ID)
	claimed, err := s.guard.Claim(ctx, key)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check webhook idempotency")
	}
	if !claimed {
		s.info(ctx, event, "stripe.webhook.duplicate")
		return nil
	}

	if err := s.dispatch(ctx, event); err != nil {
		if delErr := s.guard.Release(ctx, key); delErr != nil && s.logg != nil {
			s.logg.Error(ctx, "stripe.webhook.release_marker_failed", delErr)
		}
		return err
	}
	return nil
}

func (s *Service) dispatch(ctx context.Context, event *stripe.Event) error {
	var status enums.PaymentStatus
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		status = enums.PaymentStatusPaid
	case stripe.EventTypePaymentIntentPaymentFailed:
		status = enums.PaymentStatusFailed
	default:
		s.info(ctx, event, "stripe.webhook.ignored")
		return nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
	}
	orderID, err := OrderIDFromMetadata(intent.Metadata)
	if err != nil {
		return err
	}

	err = s.payments.RecordPayment(ctx, orderID, intent.ID, status)
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		// Intent for an order that no longer exists; acknowledge so Stripe stops retrying.
		s.info(ctx, event, "stripe.webhook.order_missing")
		return nil
	}
	return err
}

// OrderIDFromMetadata reads the order id stamped on the intent at checkout.
func OrderIDFromMetadata(metadata map[string]string) (uuid.UUID, error) {
	raw := metadata[pkgstripe.MetadataOrderID]
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id missing from payment intent metadata")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id in payment intent metadata")
	}
	return id, nil
}

func (s *Service) info(ctx context.Context, event *stripe.Event, msg string) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": string(event.Type),
	})
	s.logg.Info(ctx, msg)
}
