package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	pkgstripe "github.com/brewcart/brewcart-backend/pkg/stripe"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
)

const testSecret = "whsec_test"

type secretVerifier struct{ secret string }

func (v secretVerifier) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return pkgstripe.ConstructEvent(payload, signature, v.secret)
}

type fakeStripeWebhookService struct {
	calls int
	last  *stripe.Event
	err   error
}

func (f *fakeStripeWebhookService) HandleEvent(_ context.Context, event *stripe.Event) error {
	f.calls++
	f.last = event
	return f.err
}

func TestStripeWebhookDeliversVerifiedEvent(t *testing.T) {
	payload, header := buildSignedEvent(t, time.Now().Unix())
	svc := &fakeStripeWebhookService{}
	handler := StripeWebhook(svc, secretVerifier{secret: testSecret}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, 1, svc.calls)
	require.Equal(t, stripe.EventTypePaymentIntentSucceeded, svc.last.Type)
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	payload, _ := buildSignedEvent(t, time.Now().Unix())
	svc := &fakeStripeWebhookService{}
	handler := StripeWebhook(svc, secretVerifier{secret: testSecret}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=invalid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, svc.calls)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStripeWebhookSurfacesServiceFailure(t *testing.T) {
	payload, header := buildSignedEvent(t, time.Now().Unix())
	svc := &fakeStripeWebhookService{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "record payment")}
	handler := StripeWebhook(svc, secretVerifier{secret: testSecret}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func buildSignedEvent(t *testing.T, ts int64) ([]byte, string) {
	t.Helper()
	intent := &stripe.PaymentIntent{
		ID:     "pi_" + uuid.NewString(),
		Status: stripe.PaymentIntentStatusSucceeded,
		Metadata: map[string]string{
			pkgstripe.MetadataOrderID: uuid.NewString(),
		},
	}
	rawIntent, err := json.Marshal(intent)
	require.NoError(t, err)
	event := &stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Type:       stripe.EventTypePaymentIntentSucceeded,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data:       &stripe.EventData{Raw: rawIntent},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return payload, buildStripeSignatureHeader(payload, testSecret, ts)
}

func buildStripeSignatureHeader(payload []byte, secret string, ts int64) string {
	signedPayload := fmt.Sprintf("%d.%s", ts, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
