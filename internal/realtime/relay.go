package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/brewcart/brewcart-backend/internal/consumers"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/brewcart/brewcart-backend/pkg/logger"
	"github.com/brewcart/brewcart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

const relayConsumerName = "realtime-relay"

type changePublisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// Relay converts outbox domain events into ChangeEvents for the hubs.
type Relay struct {
	publisher changePublisher
	logg      *logger.Logger
}

func NewRelay(publisher changePublisher, logg *logger.Logger) (*Relay, error) {
	if publisher == nil {
		return nil, errors.New("change publisher required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Relay{publisher: publisher, logg: logg}, nil
}

func (r *Relay) Name() string { return relayConsumerName }

func (r *Relay) Events() []enums.OutboxEventType {
	return []enums.OutboxEventType{
		enums.EventOrderCreated,
		enums.EventOrderStatusChanged,
		enums.EventOrderPaymentUpdated,
		enums.EventProductChanged,
		enums.EventProductLowStock,
		enums.EventStoreUpdated,
		enums.EventStoreSettingsUpdated,
		enums.EventSupportRequestCreated,
		enums.EventSupportRequestUpdated,
	}
}

func (r *Relay) Handle(ctx context.Context, envelope consumers.Envelope) error {
	ev, ok, err := ToChangeEvent(envelope)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := r.publisher.Publish(ctx, ev); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	r.logg.Debug(r.logg.WithFields(ctx, map[string]any{
		"table":    ev.Table,
		"change":   ev.Type,
		"store_id": ev.StoreID.String(),
	}), "change event relayed")
	return nil
}

// ToChangeEvent maps a domain event onto the row it changed. ok is false for
// events that have no store to deliver to.
func ToChangeEvent(envelope consumers.Envelope) (ChangeEvent, bool, error) {
	ev := ChangeEvent{CommitTimestamp: envelope.OccurredAt, Record: envelope.Data}
	switch envelope.EventType {
	case enums.EventOrderCreated:
		var p payloads.OrderCreatedEvent
		if err := envelope.Decode(&p); err != nil {
			return ev, false, err
		}
		ev.Table, ev.Type, ev.StoreID, ev.RecordID = TableOrders, enums.ChangeInsert, p.StoreID, p.OrderID
	case enums.EventOrderStatusChanged:
		var p payloads.OrderStatusChangedEvent
		if err := envelope.Decode(&p); err != nil {
			return ev, false, err
		}
		ev.Table, ev.Type, ev.StoreID, ev.RecordID = TableOrders, enums.ChangeUpdate, p.StoreID, p.OrderID
	case enums.EventOrderPaymentUpdated:
		var p payloads.OrderPaymentUpdatedEvent
		if err := envelope.Decode(&p); err != nil {
			return ev, false, err
		}
		ev.Table, ev.Type, ev.StoreID, ev.RecordID = TableOrders, enums.ChangeUpdate, p.StoreID, p.OrderID
	case enums.EventProductChanged:
		var p payloads.ProductChangedEvent
		if err := envelope.Decode(&p); err != nil {
			return ev, false, err
		}
		ev.Table, ev.Type, ev.StoreID, ev.RecordID = TableProducts, p.Change, p.StoreID, p.ProductID
		if len(p.Record) > 0 {
			ev.Record = p.Record
		}
	case enums.EventProductLowStock:
		var p payloads.ProductLowStockEvent
		if err := envelope.Decode(&p); err != nil {
			return ev, false, err
		}
		ev.Table, ev.Type, ev.StoreID, ev.RecordID = TableProducts, enums.ChangeUpdate, p.StoreID, p.ProductID
	case enums.EventStoreUpdated:
		var p payloads.StoreUpdatedEvent
		if err := envelope.Decode(&p); err != nil {
			return ev, false, err
		}
		ev.Table, ev.Type, ev.StoreID, ev.RecordID = TableStores, enums.ChangeUpdate, p.StoreID, p.StoreID
		ev.Record = recordOr(p.Record, envelope.Data)
	case enums.EventStoreSettingsUpdated:
		var p payloads.StoreSettingsUpdatedEvent
		if err := envelope.Decode(&p); err != nil {
			return ev, false, err
		}
		ev.Table, ev.Type, ev.StoreID, ev.RecordID = TableStoreSettings, enums.ChangeUpdate, p.StoreID, p.StoreID
		ev.Record = recordOr(p.Record, envelope.Data)
	case enums.EventSupportRequestCreated:
		var p payloads.SupportRequestCreatedEvent
		if err := envelope.Decode(&p); err != nil {
			return ev, false, err
		}
		if p.StoreID == nil {
			return ev, false, nil
		}
		ev.Table, ev.Type, ev.StoreID, ev.RecordID = TableSupportRequests, enums.ChangeInsert, *p.StoreID, p.RequestID
	case enums.EventSupportRequestUpdated:
		var p payloads.SupportRequestUpdatedEvent
		if err := envelope.Decode(&p); err != nil {
			return ev, false, err
		}
		if p.StoreID == nil {
			return ev, false, nil
		}
		ev.Table, ev.Type, ev.StoreID, ev.RecordID = TableSupportRequests, enums.ChangeUpdate, *p.StoreID, p.RequestID
	default:
		return ev, false, nil
	}
	if ev.StoreID == uuid.Nil {
		return ev, false, errors.New("event store id missing")
	}
	if !ev.Type.IsValid() {
		return ev, false, fmt.Errorf("invalid change type %q", ev.Type)
	}
	return ev, true, nil
}

func recordOr(record, fallback json.RawMessage) json.RawMessage {
	if len(record) > 0 {
		return record
	}
	return fallback
}
