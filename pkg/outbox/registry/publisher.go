// Package registry maps outbox event types to their aggregate, topic and
// payload schema so the publisher can reject malformed rows before sending.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/brewcart/brewcart-backend/pkg/config"
	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/brewcart/brewcart-backend/pkg/outbox"
	"github.com/brewcart/brewcart-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate, topic and payload.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is a validated outbox row with its typed payload.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a row the publisher should dead-letter.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func fatalf(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

func schema[T any]() func() any { return func() any { return new(T) } }

// catalog lists every event the outbox may carry. They all share the domain
// topic and consumers filter on the event_type attribute.
var catalog = []struct {
	event     enums.OutboxEventType
	aggregate enums.OutboxAggregateType
	payload   func() any
}{
	{enums.EventOrderCreated, enums.AggregateOrder, schema[payloads.OrderCreatedEvent]()},
	{enums.EventOrderStatusChanged, enums.AggregateOrder, schema[payloads.OrderStatusChangedEvent]()},
	{enums.EventOrderPaymentUpdated, enums.AggregateOrder, schema[payloads.OrderPaymentUpdatedEvent]()},
	{enums.EventProductChanged, enums.AggregateProduct, schema[payloads.ProductChangedEvent]()},
	{enums.EventProductLowStock, enums.AggregateProduct, schema[payloads.ProductLowStockEvent]()},
	{enums.EventStoreUpdated, enums.AggregateStore, schema[payloads.StoreUpdatedEvent]()},
	{enums.EventStoreSettingsUpdated, enums.AggregateStoreSettings, schema[payloads.StoreSettingsUpdatedEvent]()},
	{enums.EventSupportRequestCreated, enums.AggregateSupportRequest, schema[payloads.SupportRequestCreatedEvent]()},
	{enums.EventSupportRequestUpdated, enums.AggregateSupportRequest, schema[payloads.SupportRequestUpdatedEvent]()},
}

// EventRegistry resolves outbox rows against the catalog.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.DomainTopic == "" {
		return nil, errors.New("domain topic is required")
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(catalog))}
	for _, c := range catalog {
		reg.entries[c.event] = EventDescriptor{
			EventType:      c.event,
			AggregateType:  c.aggregate,
			Topic:          cfg.DomainTopic,
			PayloadFactory: c.payload,
		}
	}
	return reg, nil
}

// Resolve checks the row's type and aggregate, then decodes the envelope and
// its payload. Every failure is non-retryable.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, fatalf("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, fatalf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, fatalf("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, fatalf("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fatalf("payload missing for %s", event.EventType)
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, fatalf("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
