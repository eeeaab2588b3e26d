package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brewcart/brewcart-backend/pkg/config"
	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/brewcart/brewcart-backend/pkg/outbox"
	"github.com/brewcart/brewcart-backend/pkg/outbox/payloads"
)

func newRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{DomainTopic: "brewcart-domain"})
	require.NoError(t, err)
	return reg
}

func envelope(t *testing.T, data string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(data),
	})
	require.NoError(t, err)
	return raw
}

func TestResolveDecodesTypedPayload(t *testing.T) {
	reg := newRegistry(t)
	orderID := uuid.New()
	data, err := json.Marshal(payloads.OrderCreatedEvent{OrderID: orderID, StoreID: uuid.New(), OrderNumber: 1001, TotalCents: 2599})
	require.NoError(t, err)

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       envelope(t, string(data)),
	})
	require.NoError(t, err)

	assert.Equal(t, "brewcart-domain", resolved.Descriptor.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	payload, ok := resolved.Payload.(*payloads.OrderCreatedEvent)
	require.True(t, ok, "got %T", resolved.Payload)
	assert.Equal(t, orderID, payload.OrderID)
	assert.Equal(t, int64(1001), payload.OrderNumber)
}

func TestCatalogAggregatesAreValid(t *testing.T) {
	reg := newRegistry(t)
	require.Len(t, reg.entries, len(catalog))
	for _, desc := range reg.entries {
		assert.True(t, desc.AggregateType.IsValid(), desc.EventType)
		assert.NotNil(t, desc.PayloadFactory(), desc.EventType)
	}
}

func TestResolveRejectsMalformedRows(t *testing.T) {
	reg := newRegistry(t)
	cases := map[string]models.OutboxEvent{
		"unknown type": {
			EventType: "coupon_redeemed", AggregateType: enums.AggregateOrder,
			AggregateID: uuid.New(), Payload: envelope(t, `{}`),
		},
		"aggregate mismatch": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateProduct,
			AggregateID: uuid.New(), Payload: envelope(t, `{}`),
		},
		"missing aggregate id": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder,
			Payload: envelope(t, `{}`),
		},
		"null payload": {
			EventType: enums.EventProductLowStock, AggregateType: enums.AggregateProduct,
			AggregateID: uuid.New(), Payload: envelope(t, `null`),
		},
		"broken envelope": {
			EventType: enums.EventProductLowStock, AggregateType: enums.AggregateProduct,
			AggregateID: uuid.New(), Payload: json.RawMessage(`{"data":`),
		},
		"wrong payload shape": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder,
			AggregateID: uuid.New(), Payload: envelope(t, `{"order_id":5}`),
		},
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			var nonRetry NonRetryableError
			require.ErrorAs(t, err, &nonRetry)
		})
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{})
	require.Error(t, err)
}
