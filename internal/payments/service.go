package payments

import (
	"context"
	"fmt"

	"github.com/brewcart/brewcart-backend/internal/settings"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/google/uuid"
)

type settingsReader interface {
	Get(ctx context.Context, storeID uuid.UUID) (*settings.Settings, error)
}

// Option is a payment method as the storefront renders it.
type Option struct {
	Method       enums.PaymentMethod `json:"method"`
	Label        string              `json:"label"`
	Instructions *string             `json:"instructions,omitempty"`
	// RequiresCapture tells the client to expect a card client secret after checkout.
	RequiresCapture bool `json:"requires_capture"`
}

// Service answers which payment methods a store accepts.
type Service interface {
	ListAvailable(ctx context.Context, storeID uuid.UUID) ([]Option, error)
}

type service struct {
	settings      settingsReader
	stripeEnabled bool
}

// NewService builds the payment method catalog. Card is hidden when Stripe is off,
// even if a stale settings row still lists it.
func NewService(reader settingsReader, stripeEnabled bool) (Service, error) {
	if reader == nil {
		return nil, fmt.Errorf("settings reader required")
	}
	return &service{settings: reader, stripeEnabled: stripeEnabled}, nil
}

func (s *service) ListAvailable(ctx context.Context, storeID uuid.UUID) ([]Option, error) {
	current, err := s.settings.Get(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return Options(*current, s.stripeEnabled), nil
}

// Options renders the enabled methods of st in their configured order.
func Options(st settings.Settings, stripeEnabled bool) []Option {
	out := make([]Option, 0, len(st.EnabledPaymentMethods))
	for _, method := range st.EnabledPaymentMethods {
		if method == enums.PaymentMethodCard && !stripeEnabled {
			continue
		}
		opt := Option{
			Method:          method,
			Label:           method.Label(),
			RequiresCapture: method.RequiresOnlineCapture(),
		}
		if method == enums.PaymentMethodBankTransfer {
			opt.Instructions = st.BankTransferInstructions
		}
		out = append(out, opt)
	}
	return out
}

// Select validates a checkout's chosen method against the store settings.
func Select(st settings.Settings, raw string) (enums.PaymentMethod, error) {
	method, err := enums.ParsePaymentMethod(raw)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").
			WithDetails(map[string]any{"payment_method": raw})
	}
	if !st.Accepts(method) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment method not accepted by this store").
			WithDetails(map[string]any{"payment_method": raw})
	}
	return method, nil
}

// InitialPaymentStatus is the payment_status an order starts with.
func InitialPaymentStatus(method enums.PaymentMethod) enums.PaymentStatus {
	if method.RequiresOnlineCapture() {
		return enums.PaymentStatusPending
	}
	return enums.PaymentStatusUnpaid
}
