package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// StoreSettings holds per-store checkout and notification preferences. One row per store.
type StoreSettings struct {
	StoreID                  uuid.UUID       `gorm:"column:store_id;type:uuid;primaryKey"`
	Currency                 string          `gorm:"column:currency;not null"`
	TaxRate                  decimal.Decimal `gorm:"column:tax_rate;type:numeric(5,2);not null"`
	DeliveryFeeCents         int             `gorm:"column:delivery_fee_cents;not null"`
	MinOrderCents            int             `gorm:"column:min_order_cents;not null"`
	EnabledPaymentMethods    pq.StringArray  `gorm:"column:enabled_payment_methods;type:text[];not null"`
	AcceptingOrders          bool            `gorm:"column:accepting_orders;not null"`
	LowStockThreshold        int             `gorm:"column:low_stock_threshold;not null"`
	PushEnabled              bool            `gorm:"column:push_enabled;not null"`
	OrderNotificationEmail   *string         `gorm:"column:order_notification_email"`
	BankTransferInstructions *string         `gorm:"column:bank_transfer_instructions"`
	CreatedAt                time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (StoreSettings) TableName() string {
	return "store_settings"
}
