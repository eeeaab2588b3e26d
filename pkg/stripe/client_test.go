package stripe

import (
	"context"
	"testing"
	"time"

	"github.com/brewcart/brewcart-backend/pkg/config"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84/webhook"
)

func TestNewClientValidatesKeys(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.StripeConfig{Secret: "whsec"}, nil)
	require.ErrorIs(t, err, errAPIKeyRequired)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_test_1"}, nil)
	require.ErrorIs(t, err, errSecretRequired)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_live_1", Secret: "whsec", Env: "test"}, nil)
	require.Error(t, err)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_test_1", Secret: "whsec", Env: "staging"}, nil)
	require.ErrorIs(t, err, errInvalidStripeEnv)

	client, err := NewClient(ctx, config.StripeConfig{APIKey: "sk_live_1", Secret: "whsec", Env: "LIVE"}, nil)
	require.NoError(t, err)
	require.Equal(t, "live", client.Environment())
	require.Equal(t, "whsec", client.SigningSecret())
}

func TestCreatePaymentIntentRejectsZeroAmount(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_1", Secret: "whsec"}, nil)
	require.NoError(t, err)

	_, err = client.CreatePaymentIntent(context.Background(), PaymentIntentInput{Currency: "usd"})
	require.Error(t, err)
}

func TestConstructEventVerifiesSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent"}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})

	event, err := ConstructEvent(signed.Payload, signed.Header, "whsec_test")
	require.NoError(t, err)
	require.Equal(t, "evt_1", event.ID)
	require.Equal(t, "payment_intent.succeeded", string(event.Type))

	_, err = ConstructEvent(signed.Payload, signed.Header, "whsec_other")
	require.Error(t, err)

	_, err = ConstructEvent(signed.Payload, signed.Header, "")
	require.ErrorIs(t, err, errSecretRequired)
}
