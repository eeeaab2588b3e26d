package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/outbox/idempotency"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
)

type recordedPayment struct {
	orderID   uuid.UUID
	reference string
	status    enums.PaymentStatus
}

type stubRecorder struct {
	calls []recordedPayment
	err   error
}

func (s *stubRecorder) RecordPayment(_ context.Context, orderID uuid.UUID, reference string, status enums.PaymentStatus) error {
	s.calls = append(s.calls, recordedPayment{orderID: orderID, reference: reference, status: status})
	return s.err
}

type memoryGuard struct {
	marked   map[string]bool
	released []string
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{marked: map[string]bool{}}
}

func (g *memoryGuard) Claim(_ context.Context, k idempotency.Key) (bool, error) {
	key := k.Scope + ":" + k.ID
	if g.marked[key] {
		return false, nil
	}
	g.marked[key] = true
	return true, nil
}

func (g *memoryGuard) Release(_ context.Context, k idempotency.Key) error {
	key := k.Scope + ":" + k.ID
	delete(g.marked, key)
	g.released = append(g.released, key)
	return nil
}

func intentEvent(t *testing.T, id string, typ stripe.EventType, orderID string) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":       "pi_123",
		"object":   "payment_intent",
		"metadata": map[string]string{"order_id": orderID},
	})
	require.NoError(t, err)
	return &stripe.Event{ID: id, Type: typ, Data: &stripe.EventData{Raw: raw}}
}

func newTestService(t *testing.T, recorder *stubRecorder, guard *memoryGuard) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Payments: recorder, Guard: guard})
	require.NoError(t, err)
	return svc
}

func TestHandleEventRecordsSucceededIntent(t *testing.T) {
	recorder := &stubRecorder{}
	svc := newTestService(t, recorder, newMemoryGuard())
	orderID := uuid.New()

	err := svc.HandleEvent(context.Background(), intentEvent(t, "evt_1", stripe.EventTypePaymentIntentSucceeded, orderID.String()))
	require.NoError(t, err)
	require.Equal(t, []recordedPayment{{orderID: orderID, reference: "pi_123", status: enums.PaymentStatusPaid}}, recorder.calls)
}

func TestHandleEventRecordsFailedIntent(t *testing.T) {
	recorder := &stubRecorder{}
	svc := newTestService(t, recorder, newMemoryGuard())
	orderID := uuid.New()

	err := svc.HandleEvent(context.Background(), intentEvent(t, "evt_2", stripe.EventTypePaymentIntentPaymentFailed, orderID.String()))
	require.NoError(t, err)
	require.Len(t, recorder.calls, 1)
	require.Equal(t, enums.PaymentStatusFailed, recorder.calls[0].status)
}

func TestHandleEventSkipsDuplicates(t *testing.T) {
	recorder := &stubRecorder{}
	svc := newTestService(t, recorder, newMemoryGuard())
	event := intentEvent(t, "evt_3", stripe.EventTypePaymentIntentSucceeded, uuid.NewString())

	require.NoError(t, svc.HandleEvent(context.Background(), event))
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	require.Len(t, recorder.calls, 1)
}

func TestHandleEventReleasesMarkerOnFailure(t *testing.T) {
	recorder := &stubRecorder{err: errors.New("db down")}
	guard := newMemoryGuard()
	svc := newTestService(t, recorder, guard)
	event := intentEvent(t, "evt_4", stripe.EventTypePaymentIntentSucceeded, uuid.NewString())

	require.Error(t, svc.HandleEvent(context.Background(), event))
	require.Equal(t, []string{"ext:stripe:evt_4"}, guard.released)

	recorder.err = nil
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	require.Len(t, recorder.calls, 2)
}

func TestHandleEventAcknowledgesMissingOrder(t *testing.T) {
	recorder := &stubRecorder{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	svc := newTestService(t, recorder, newMemoryGuard())

	err := svc.HandleEvent(context.Background(), intentEvent(t, "evt_5", stripe.EventTypePaymentIntentSucceeded, uuid.NewString()))
	require.NoError(t, err)
}

func TestHandleEventRejectsBadMetadata(t *testing.T) {
	svc := newTestService(t, &stubRecorder{}, newMemoryGuard())

	err := svc.HandleEvent(context.Background(), intentEvent(t, "evt_6", stripe.EventTypePaymentIntentSucceeded, "nope"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	recorder := &stubRecorder{}
	svc := newTestService(t, recorder, newMemoryGuard())
	event := &stripe.Event{ID: "evt_7", Type: stripe.EventTypeChargeRefunded, Data: &stripe.EventData{Raw: []byte(`{}`)}}

	require.NoError(t, svc.HandleEvent(context.Background(), event))
	require.Empty(t, recorder.calls)
}
