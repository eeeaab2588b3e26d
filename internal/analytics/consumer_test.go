package analytics

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/brewcart/brewcart-backend/internal/consumers"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/brewcart/brewcart-backend/pkg/logger"
	"github.com/brewcart/brewcart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	rows []OrderFactRow
}

func (r *recordingWriter) Insert(_ context.Context, row OrderFactRow) error {
	r.rows = append(r.rows, row)
	return nil
}

func envelope(t *testing.T, eventType enums.OutboxEventType, data any) consumers.Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return consumers.Envelope{
		EventID:       uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		OccurredAt:    time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC),
		Data:          raw,
	}
}

func testConsumer(t *testing.T) (*Consumer, *recordingWriter) {
	t.Helper()
	w := &recordingWriter{}
	c, err := NewConsumer(w, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return c, w
}

func TestConsumerWritesOrderCreatedFact(t *testing.T) {
	c, w := testConsumer(t)
	orderID, storeID := uuid.New(), uuid.New()
	env := envelope(t, enums.EventOrderCreated, payloads.OrderCreatedEvent{
		OrderID:       orderID,
		StoreID:       storeID,
		OrderNumber:   1001,
		Status:        enums.OrderStatusPending,
		PaymentMethod: enums.PaymentMethodCashOnDelivery,
		PaymentStatus: enums.PaymentStatusPending,
		Currency:      "USD",
		SubtotalCents: 2000,
		TaxCents:      165,
		TotalCents:    2665,
		ItemCount:     3,
	})

	require.NoError(t, c.Handle(context.Background(), env))
	require.Len(t, w.rows, 1)
	row := w.rows[0]
	require.Equal(t, env.EventID.String(), row.EventID)
	require.Equal(t, orderID.String(), row.OrderID)
	require.Equal(t, storeID.String(), row.StoreID)
	require.Equal(t, int64(1001), *row.OrderNumber)
	require.Equal(t, int64(2665), *row.TotalCents)
	require.Equal(t, "cash_on_delivery", *row.PaymentMethod)
	require.True(t, row.Payload.Valid)
}

func TestConsumerWritesStatusAndPaymentFacts(t *testing.T) {
	c, w := testConsumer(t)
	orderID, storeID := uuid.New(), uuid.New()

	require.NoError(t, c.Handle(context.Background(), envelope(t, enums.EventOrderStatusChanged, payloads.OrderStatusChangedEvent{
		OrderID:        orderID,
		StoreID:        storeID,
		OrderNumber:    1002,
		PreviousStatus: enums.OrderStatusPending,
		Status:         enums.OrderStatusConfirmed,
	})))
	require.NoError(t, c.Handle(context.Background(), envelope(t, enums.EventOrderPaymentUpdated, payloads.OrderPaymentUpdatedEvent{
		OrderID:       orderID,
		StoreID:       storeID,
		PaymentStatus: enums.PaymentStatusPaid,
		TotalCents:    900,
		Currency:      "USD",
	})))

	require.Len(t, w.rows, 2)
	require.Equal(t, "confirmed", *w.rows[0].Status)
	require.Nil(t, w.rows[0].TotalCents)
	require.Equal(t, "paid", *w.rows[1].PaymentStatus)
	require.Nil(t, w.rows[1].Status)
}

func TestConsumerRejectsMalformedPayload(t *testing.T) {
	c, w := testConsumer(t)
	env := envelope(t, enums.EventOrderCreated, map[string]any{})
	env.Data = json.RawMessage(`{"order_id": 12}`)

	require.Error(t, c.Handle(context.Background(), env))
	require.Empty(t, w.rows)
}
