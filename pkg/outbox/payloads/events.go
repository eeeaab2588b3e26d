// Package payloads holds the typed data carried inside outbox envelopes.
package payloads

import (
	"encoding/json"
	"time"

	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderCreatedEvent is emitted once a storefront checkout commits.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	StoreID       uuid.UUID           `json:"store_id"`
	OrderNumber   int64               `json:"order_number"`
	CustomerName  string              `json:"customer_name"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Currency      string              `json:"currency"`
	SubtotalCents int                 `json:"subtotal_cents"`
	TaxCents      int                 `json:"tax_cents"`
	TotalCents    int                 `json:"total_cents"`
	ItemCount     int                 `json:"item_count"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderStatusChangedEvent is emitted on every fulfilment transition.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	StoreID        uuid.UUID         `json:"store_id"`
	OrderNumber    int64             `json:"order_number"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Status         enums.OrderStatus `json:"status"`
	Reason         string            `json:"reason,omitempty"`
	ChangedAt      time.Time         `json:"changed_at"`
}

// OrderPaymentUpdatedEvent tracks payment_status changes driven by the card gateway.
type OrderPaymentUpdatedEvent struct {
	OrderID          uuid.UUID           `json:"order_id"`
	StoreID          uuid.UUID           `json:"store_id"`
	PaymentStatus    enums.PaymentStatus `json:"payment_status"`
	PaymentReference string              `json:"payment_reference,omitempty"`
	TotalCents       int                 `json:"total_cents"`
	Currency         string              `json:"currency"`
}

// ProductChangedEvent mirrors a catalog row mutation.
type ProductChangedEvent struct {
	ProductID uuid.UUID        `json:"product_id"`
	StoreID   uuid.UUID        `json:"store_id"`
	Change    enums.ChangeType `json:"change"`
	Record    json.RawMessage  `json:"record,omitempty"`
}

// ProductLowStockEvent fires when a checkout or a stock reduction leaves a product at or under the store threshold.
type ProductLowStockEvent struct {
	ProductID uuid.UUID `json:"product_id"`
	StoreID   uuid.UUID `json:"store_id"`
	Name      string    `json:"name"`
	Stock     int       `json:"stock"`
	Threshold int       `json:"threshold"`
}

// StoreUpdatedEvent carries the store row after a profile or activation change.
type StoreUpdatedEvent struct {
	StoreID uuid.UUID       `json:"store_id"`
	Record  json.RawMessage `json:"record,omitempty"`
}

// StoreSettingsUpdatedEvent carries the effective settings after an upsert.
type StoreSettingsUpdatedEvent struct {
	StoreID uuid.UUID       `json:"store_id"`
	Record  json.RawMessage `json:"record,omitempty"`
}

// SupportRequestCreatedEvent is emitted for every new ticket.
type SupportRequestCreatedEvent struct {
	RequestID uuid.UUID                  `json:"request_id"`
	StoreID   *uuid.UUID                 `json:"store_id,omitempty"`
	Subject   string                     `json:"subject"`
	Status    enums.SupportRequestStatus `json:"status"`
}

// SupportRequestUpdatedEvent reports status changes made by platform staff.
type SupportRequestUpdatedEvent struct {
	RequestID      uuid.UUID                  `json:"request_id"`
	StoreID        *uuid.UUID                 `json:"store_id,omitempty"`
	Subject        string                     `json:"subject"`
	PreviousStatus enums.SupportRequestStatus `json:"previous_status"`
	Status         enums.SupportRequestStatus `json:"status"`
	AdminNotes     string                     `json:"admin_notes,omitempty"`
}
