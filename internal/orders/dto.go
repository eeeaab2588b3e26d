package orders

import (
	"time"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderDTO is the dashboard view of an order.
type OrderDTO struct {
	ID               uuid.UUID           `json:"id"`
	StoreID          uuid.UUID           `json:"store_id"`
	OrderNumber      int64               `json:"order_number"`
	CustomerName     string              `json:"customer_name"`
	CustomerPhone    string              `json:"customer_phone"`
	CustomerEmail    *string             `json:"customer_email,omitempty"`
	Shipping         AddressDTO          `json:"shipping"`
	Notes            *string             `json:"notes,omitempty"`
	Status           enums.OrderStatus   `json:"status"`
	PaymentMethod    enums.PaymentMethod `json:"payment_method"`
	PaymentStatus    enums.PaymentStatus `json:"payment_status"`
	PaymentReference *string             `json:"payment_reference,omitempty"`
	Currency         string              `json:"currency"`
	SubtotalCents    int                 `json:"subtotal_cents"`
	TaxCents         int                 `json:"tax_cents"`
	DeliveryFeeCents int                 `json:"delivery_fee_cents"`
	TotalCents       int                 `json:"total_cents"`
	CanceledAt       *time.Time          `json:"canceled_at,omitempty"`
	Items            []ItemDTO           `json:"items,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// AddressDTO groups the shipping columns.
type AddressDTO struct {
	Line1      string  `json:"line1" validate:"required,max=200"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       string  `json:"city" validate:"required,max=100"`
	Region     *string `json:"region,omitempty" validate:"omitempty,max=100"`
	PostalCode *string `json:"postal_code,omitempty" validate:"omitempty,max=20"`
	Country    string  `json:"country" validate:"required,len=2"`
}

type ItemDTO struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	ProductName    string     `json:"product_name"`
	UnitPriceCents int        `json:"unit_price_cents"`
	Quantity       int        `json:"quantity"`
	LineTotalCents int        `json:"line_total_cents"`
}

// TrackingDTO is what a customer sees when tracking their order.
type TrackingDTO struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   int64               `json:"order_number"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Currency      string              `json:"currency"`
	SubtotalCents int                 `json:"subtotal_cents"`
	TaxCents      int                 `json:"tax_cents"`
	DeliveryCents int                 `json:"delivery_fee_cents"`
	TotalCents    int                 `json:"total_cents"`
	Items         []ItemDTO           `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
	CanceledAt    *time.Time          `json:"canceled_at,omitempty"`
}

func FromModel(m *models.Order) *OrderDTO {
	if m == nil {
		return nil
	}
	return &OrderDTO{
		ID:            m.ID,
		StoreID:       m.StoreID,
		OrderNumber:   m.OrderNumber,
		CustomerName:  m.CustomerName,
		CustomerPhone: m.CustomerPhone,
		CustomerEmail: m.CustomerEmail,
		Shipping: AddressDTO{
			Line1:      m.AddressLine1,
			Line2:      m.AddressLine2,
			City:       m.City,
			Region:     m.Region,
			PostalCode: m.PostalCode,
			Country:    m.Country,
		},
		Notes:            m.Notes,
		Status:           m.Status,
		PaymentMethod:    m.PaymentMethod,
		PaymentStatus:    m.PaymentStatus,
		PaymentReference: m.PaymentReference,
		Currency:         m.Currency,
		SubtotalCents:    m.SubtotalCents,
		TaxCents:         m.TaxCents,
		DeliveryFeeCents: m.DeliveryFeeCents,
		TotalCents:       m.TotalCents,
		CanceledAt:       m.CanceledAt,
		Items:            itemsFromModel(m.Items),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func TrackingFromModel(m *models.Order) *TrackingDTO {
	if m == nil {
		return nil
	}
	items := itemsFromModel(m.Items)
	if items == nil {
		items = []ItemDTO{}
	}
	return &TrackingDTO{
		ID:            m.ID,
		OrderNumber:   m.OrderNumber,
		Status:        m.Status,
		PaymentMethod: m.PaymentMethod,
		PaymentStatus: m.PaymentStatus,
		Currency:      m.Currency,
		SubtotalCents: m.SubtotalCents,
		TaxCents:      m.TaxCents,
		DeliveryCents: m.DeliveryFeeCents,
		TotalCents:    m.TotalCents,
		Items:         items,
		CreatedAt:     m.CreatedAt,
		CanceledAt:    m.CanceledAt,
	}
}

func itemsFromModel(items []models.OrderItem) []ItemDTO {
	if len(items) == 0 {
		return nil
	}
	out := make([]ItemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, ItemDTO{
			ID:             it.ID,
			ProductID:      it.ProductID,
			ProductName:    it.ProductName,
			UnitPriceCents: it.UnitPriceCents,
			Quantity:       it.Quantity,
			LineTotalCents: it.LineTotalCents,
		})
	}
	return out
}
