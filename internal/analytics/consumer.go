// Package analytics streams order lifecycle facts into BigQuery for reporting.
package analytics

import (
	"context"
	"errors"
	"fmt"

	"github.com/brewcart/brewcart-backend/internal/consumers"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/brewcart/brewcart-backend/pkg/logger"
	"github.com/brewcart/brewcart-backend/pkg/outbox/payloads"
)

const consumerName = "analytics"

type rowWriter interface {
	Insert(ctx context.Context, row OrderFactRow) error
}

// Consumer converts order events into OrderFactRows.
type Consumer struct {
	writer rowWriter
	logg   *logger.Logger
}

func NewConsumer(writer rowWriter, logg *logger.Logger) (*Consumer, error) {
	if writer == nil {
		return nil, errors.New("analytics writer required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Consumer{writer: writer, logg: logg}, nil
}

func (c *Consumer) Name() string { return consumerName }

func (c *Consumer) Events() []enums.OutboxEventType {
	return []enums.OutboxEventType{
		enums.EventOrderCreated,
		enums.EventOrderStatusChanged,
		enums.EventOrderPaymentUpdated,
	}
}

func (c *Consumer) Handle(ctx context.Context, envelope consumers.Envelope) error {
	row, err := buildRow(envelope)
	if err != nil {
		return err
	}
	if err := c.writer.Insert(ctx, row); err != nil {
		return err
	}
	c.logg.Debug(c.logg.WithFields(ctx, map[string]any{"order_id": row.OrderID}), "order fact written")
	return nil
}

func buildRow(envelope consumers.Envelope) (OrderFactRow, error) {
	row := OrderFactRow{
		EventID:    envelope.EventID.String(),
		EventType:  string(envelope.EventType),
		OccurredAt: envelope.OccurredAt,
		Payload:    jsonColumn(envelope.Data),
	}

	switch envelope.EventType {
	case enums.EventOrderCreated:
		var p payloads.OrderCreatedEvent
		if err := envelope.Decode(&p); err != nil {
			return OrderFactRow{}, fmt.Errorf("decode order created: %w", err)
		}
		row.OrderID = p.OrderID.String()
		row.StoreID = p.StoreID.String()
		row.OrderNumber = ptr(p.OrderNumber)
		row.Status = ptr(string(p.Status))
		row.PaymentMethod = ptr(string(p.PaymentMethod))
		row.PaymentStatus = ptr(string(p.PaymentStatus))
		row.Currency = ptr(p.Currency)
		row.SubtotalCents = ptr(int64(p.SubtotalCents))
		row.TaxCents = ptr(int64(p.TaxCents))
		row.TotalCents = ptr(int64(p.TotalCents))
		row.ItemCount = ptr(int64(p.ItemCount))
	case enums.EventOrderStatusChanged:
		var p payloads.OrderStatusChangedEvent
		if err := envelope.Decode(&p); err != nil {
			return OrderFactRow{}, fmt.Errorf("decode order status changed: %w", err)
		}
		row.OrderID = p.OrderID.String()
		row.StoreID = p.StoreID.String()
		row.OrderNumber = ptr(p.OrderNumber)
		row.Status = ptr(string(p.Status))
	case enums.EventOrderPaymentUpdated:
		var p payloads.OrderPaymentUpdatedEvent
		if err := envelope.Decode(&p); err != nil {
			return OrderFactRow{}, fmt.Errorf("decode order payment updated: %w", err)
		}
		row.OrderID = p.OrderID.String()
		row.StoreID = p.StoreID.String()
		row.PaymentStatus = ptr(string(p.PaymentStatus))
		row.Currency = ptr(p.Currency)
		row.TotalCents = ptr(int64(p.TotalCents))
	default:
		return OrderFactRow{}, fmt.Errorf("unsupported event type %s", envelope.EventType)
	}

	if row.OccurredAt.IsZero() {
		return OrderFactRow{}, errors.New("event occurred_at missing")
	}
	return row, nil
}

func ptr[T any](v T) *T {
	return &v
}
