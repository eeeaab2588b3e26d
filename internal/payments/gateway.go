package payments

import (
	"context"
	"errors"

	"github.com/brewcart/brewcart-backend/pkg/stripe"
	"github.com/google/uuid"
)

// CardCharge is the amount to authorize for one committed order.
type CardCharge struct {
	OrderID     uuid.UUID
	StoreID     uuid.UUID
	OrderNumber int64
	AmountCents int
	Currency    string
}

// Intent is the processor-side handle returned to the storefront.
type Intent struct {
	Reference    string `json:"reference"`
	ClientSecret string `json:"client_secret"`
}

// Gateway creates card payment intents.
type Gateway interface {
	CreateIntent(ctx context.Context, charge CardCharge) (*Intent, error)
}

type intentAPI interface {
	CreatePaymentIntent(ctx context.Context, in stripe.PaymentIntentInput) (*stripe.PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, id string) error
}

// StripeGateway adapts the Stripe client to Gateway.
type StripeGateway struct {
	client intentAPI
}

func NewStripeGateway(client intentAPI) (*StripeGateway, error) {
	if client == nil {
		return nil, errors.New("stripe client required")
	}
	return &StripeGateway{client: client}, nil
}

// CreateIntent keys the Stripe idempotency on the order id so a retried call never double charges.
func (g *StripeGateway) CreateIntent(ctx context.Context, charge CardCharge) (*Intent, error) {
	pi, err := g.client.CreatePaymentIntent(ctx, stripe.PaymentIntentInput{
		AmountCents:    int64(charge.AmountCents),
		Currency:       charge.Currency,
		OrderID:        charge.OrderID.String(),
		StoreID:        charge.StoreID.String(),
		OrderNumber:    charge.OrderNumber,
		IdempotencyKey: "order-" + charge.OrderID.String(),
	})
	if err != nil {
		return nil, err
	}
	return &Intent{Reference: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// CancelIntent voids an intent that will never be captured, such as after an order expires.
func (g *StripeGateway) CancelIntent(ctx context.Context, reference string) error {
	if reference == "" {
		return nil
	}
	return g.client.CancelPaymentIntent(ctx, reference)
}
