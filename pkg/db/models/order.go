package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brewcart/brewcart-backend/pkg/enums"
)

// Order is a storefront purchase placed against one store.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID          uuid.UUID           `gorm:"column:store_id;type:uuid;not null"`
	OrderNumber      int64               `gorm:"column:order_number;->"`
	CustomerName     string              `gorm:"column:customer_name;not null"`
	CustomerPhone    string              `gorm:"column:customer_phone;not null"`
	CustomerEmail    *string             `gorm:"column:customer_email"`
	AddressLine1     string              `gorm:"column:address_line1;not null"`
	AddressLine2     *string             `gorm:"column:address_line2"`
	City             string              `gorm:"column:city;not null"`
	Region           *string             `gorm:"column:region"`
	PostalCode       *string             `gorm:"column:postal_code"`
	Country          string              `gorm:"column:country;not null"`
	Notes            *string             `gorm:"column:notes"`
	Status           enums.OrderStatus   `gorm:"column:status;type:order_status;not null"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null"`
	PaymentReference *string             `gorm:"column:payment_reference"`
	Currency         string              `gorm:"column:currency;not null"`
	SubtotalCents    int                 `gorm:"column:subtotal_cents;not null"`
	TaxCents         int                 `gorm:"column:tax_cents;not null"`
	DeliveryFeeCents int                 `gorm:"column:delivery_fee_cents;not null"`
	TotalCents       int                 `gorm:"column:total_cents;not null"`
	CanceledAt       *time.Time          `gorm:"column:canceled_at"`
	Items            []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots the product name and price at checkout time.
type OrderItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	ProductID      *uuid.UUID `gorm:"column:product_id;type:uuid"`
	ProductName    string     `gorm:"column:product_name;not null"`
	UnitPriceCents int        `gorm:"column:unit_price_cents;not null"`
	Quantity       int        `gorm:"column:quantity;not null"`
	LineTotalCents int        `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
