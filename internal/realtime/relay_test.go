package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/brewcart/brewcart-backend/internal/consumers"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/brewcart/brewcart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type captureRedis struct {
	channel string
	message any
	err     error
}

func (c *captureRedis) Publish(_ context.Context, channel string, message any) error {
	c.channel, c.message = channel, message
	return c.err
}

func envelope(t *testing.T, eventType enums.OutboxEventType, payload any) consumers.Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return consumers.Envelope{
		EventID:    uuid.New(),
		EventType:  eventType,
		OccurredAt: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC),
		Data:       raw,
	}
}

func TestToChangeEventMapsDomainEvents(t *testing.T) {
	storeID, orderID := uuid.New(), uuid.New()

	ev, ok, err := ToChangeEvent(envelope(t, enums.EventOrderCreated, payloads.OrderCreatedEvent{OrderID: orderID, StoreID: storeID}))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, TableOrders, ev.Table)
	require.Equal(t, enums.ChangeInsert, ev.Type)
	require.Equal(t, orderID, ev.RecordID)
	require.False(t, ev.CommitTimestamp.IsZero())

	productID := uuid.New()
	ev, ok, err = ToChangeEvent(envelope(t, enums.EventProductChanged, payloads.ProductChangedEvent{
		ProductID: productID, StoreID: storeID, Change: enums.ChangeDelete, Record: json.RawMessage(`{"id":"x"}`),
	}))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, enums.ChangeDelete, ev.Type)
	require.JSONEq(t, `{"id":"x"}`, string(ev.Record))

	_, ok, err = ToChangeEvent(envelope(t, enums.EventSupportRequestCreated, payloads.SupportRequestCreatedEvent{RequestID: uuid.New()}))
	require.NoError(t, err)
	require.False(t, ok, "anonymous support requests have no store feed")

	_, _, err = ToChangeEvent(envelope(t, enums.EventOrderStatusChanged, payloads.OrderStatusChangedEvent{OrderID: orderID}))
	require.Error(t, err)
}

func TestRelayPublishesToStoreChannel(t *testing.T) {
	redis := &captureRedis{}
	publisher, err := NewPublisher(redis, "bc:realtime")
	require.NoError(t, err)
	relay, err := NewRelay(publisher, testLogger())
	require.NoError(t, err)

	storeID := uuid.New()
	require.NoError(t, relay.Handle(context.Background(), envelope(t, enums.EventStoreSettingsUpdated, payloads.StoreSettingsUpdatedEvent{
		StoreID: storeID, Record: json.RawMessage(`{"currency":"USD"}`),
	})))
	require.Equal(t, "bc:realtime:"+storeID.String(), redis.channel)

	var published ChangeEvent
	require.NoError(t, json.Unmarshal([]byte(redis.message.(string)), &published))
	require.Equal(t, TableStoreSettings, published.Table)
	require.Equal(t, enums.ChangeUpdate, published.Type)
	require.JSONEq(t, `{"currency":"USD"}`, string(published.Record))

	redis.err = errors.New("redis down")
	require.Error(t, relay.Handle(context.Background(), envelope(t, enums.EventStoreUpdated, payloads.StoreUpdatedEvent{StoreID: storeID})))
}

func TestPublisherRejectsUnscopedEvents(t *testing.T) {
	publisher, err := NewPublisher(&captureRedis{}, "bc:realtime")
	require.NoError(t, err)
	require.Error(t, publisher.Publish(context.Background(), ChangeEvent{Table: TableOrders, Type: enums.ChangeInsert}))
	require.Error(t, publisher.Publish(context.Background(), ChangeEvent{StoreID: uuid.New(), Type: "TRUNCATE"}))
}
