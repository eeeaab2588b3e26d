package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/brewcart/brewcart-backend/internal/settings"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/stripe"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubSettings struct {
	value settings.Settings
	err   error
}

func (s stubSettings) Get(context.Context, uuid.UUID) (*settings.Settings, error) {
	if s.err != nil {
		return nil, s.err
	}
	v := s.value
	return &v, nil
}

func TestListAvailable(t *testing.T) {
	instructions := "IBAN DE00 1234"
	st := settings.Defaults(uuid.New())
	st.EnabledPaymentMethods = []enums.PaymentMethod{enums.PaymentMethodCard, enums.PaymentMethodBankTransfer}
	st.BankTransferInstructions = &instructions

	svc, err := NewService(stubSettings{value: st}, false)
	require.NoError(t, err)
	opts, err := svc.ListAvailable(context.Background(), st.StoreID)
	require.NoError(t, err)
	require.Len(t, opts, 1)
	require.Equal(t, enums.PaymentMethodBankTransfer, opts[0].Method)
	require.Equal(t, "Bank transfer", opts[0].Label)
	require.Equal(t, instructions, *opts[0].Instructions)

	opts = Options(st, true)
	require.Len(t, opts, 2)
	require.True(t, opts[0].RequiresCapture)
	require.Nil(t, opts[0].Instructions)
}

func TestListAvailablePropagatesErrors(t *testing.T) {
	svc, err := NewService(stubSettings{err: pkgerrors.New(pkgerrors.CodeDependency, "db")}, true)
	require.NoError(t, err)
	_, err = svc.ListAvailable(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	_, err = NewService(nil, true)
	require.Error(t, err)
}

func TestSelect(t *testing.T) {
	st := settings.Defaults(uuid.New())

	method, err := Select(st, "cash_on_delivery")
	require.NoError(t, err)
	require.Equal(t, enums.PaymentMethodCashOnDelivery, method)

	_, err = Select(st, "card")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = Select(st, "bitcoin")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.Equal(t, enums.PaymentStatusPending, InitialPaymentStatus(enums.PaymentMethodCard))
	require.Equal(t, enums.PaymentStatusUnpaid, InitialPaymentStatus(enums.PaymentMethodBankTransfer))
}

type stubIntentCreator struct {
	got      stripe.PaymentIntentInput
	err      error
	canceled []string
}

func (s *stubIntentCreator) CancelPaymentIntent(_ context.Context, id string) error {
	s.canceled = append(s.canceled, id)
	return nil
}

func (s *stubIntentCreator) CreatePaymentIntent(_ context.Context, in stripe.PaymentIntentInput) (*stripe.PaymentIntent, error) {
	s.got = in
	if s.err != nil {
		return nil, s.err
	}
	return &stripe.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil
}

func TestStripeGateway(t *testing.T) {
	creator := &stubIntentCreator{}
	gw, err := NewStripeGateway(creator)
	require.NoError(t, err)

	orderID := uuid.New()
	intent, err := gw.CreateIntent(context.Background(), CardCharge{OrderID: orderID, StoreID: uuid.New(), AmountCents: 1250, Currency: "USD", OrderNumber: 1001})
	require.NoError(t, err)
	require.Equal(t, "pi_123", intent.Reference)
	require.Equal(t, "pi_123_secret", intent.ClientSecret)
	require.EqualValues(t, 1250, creator.got.AmountCents)
	require.Equal(t, "order-"+orderID.String(), creator.got.IdempotencyKey)

	creator.err = errors.New("card_declined")
	_, err = gw.CreateIntent(context.Background(), CardCharge{OrderID: orderID})
	require.Error(t, err)

	require.NoError(t, gw.CancelIntent(context.Background(), ""))
	require.NoError(t, gw.CancelIntent(context.Background(), "pi_123"))
	require.Equal(t, []string{"pi_123"}, creator.canceled)

	_, err = NewStripeGateway(nil)
	require.Error(t, err)
}
