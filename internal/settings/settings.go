package settings

import (
	"time"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const (
	DefaultCurrency          = "USD"
	DefaultLowStockThreshold = 5
)

// Settings is the effective configuration of a store after defaults are applied.
type Settings struct {
	StoreID                  uuid.UUID             `json:"store_id"`
	Currency                 string                `json:"currency"`
	TaxRate                  decimal.Decimal       `json:"tax_rate"`
	DeliveryFeeCents         int                   `json:"delivery_fee_cents"`
	MinOrderCents            int                   `json:"min_order_cents"`
	EnabledPaymentMethods    []enums.PaymentMethod `json:"enabled_payment_methods"`
	AcceptingOrders          bool                  `json:"accepting_orders"`
	LowStockThreshold        int                   `json:"low_stock_threshold"`
	PushEnabled              bool                  `json:"push_enabled"`
	OrderNotificationEmail   *string               `json:"order_notification_email,omitempty"`
	BankTransferInstructions *string               `json:"bank_transfer_instructions,omitempty"`
	UpdatedAt                *time.Time            `json:"updated_at,omitempty"`
}

// Patch is a partial settings update. Nil fields keep their current value.
type Patch struct {
	Currency                 *string               `json:"currency,omitempty"`
	TaxRate                  *decimal.Decimal      `json:"tax_rate,omitempty"`
	DeliveryFeeCents         *int                  `json:"delivery_fee_cents,omitempty" validate:"omitempty,min=0"`
	MinOrderCents            *int                  `json:"min_order_cents,omitempty" validate:"omitempty,min=0"`
	EnabledPaymentMethods    []enums.PaymentMethod `json:"enabled_payment_methods,omitempty"`
	AcceptingOrders          *bool                 `json:"accepting_orders,omitempty"`
	LowStockThreshold        *int                  `json:"low_stock_threshold,omitempty" validate:"omitempty,min=1"`
	PushEnabled              *bool                 `json:"push_enabled,omitempty"`
	OrderNotificationEmail   *string               `json:"order_notification_email,omitempty" validate:"omitempty,email"`
	BankTransferInstructions *string               `json:"bank_transfer_instructions,omitempty" validate:"omitempty,max=2000"`
}

// Defaults is what a store without a settings row gets.
func Defaults(storeID uuid.UUID) Settings {
	return Settings{
		StoreID:               storeID,
		Currency:              DefaultCurrency,
		TaxRate:               decimal.Zero,
		EnabledPaymentMethods: []enums.PaymentMethod{enums.PaymentMethodCashOnDelivery},
		AcceptingOrders:       true,
		LowStockThreshold:     DefaultLowStockThreshold,
		PushEnabled:           true,
	}
}

// FromRow applies defaults to missing or zero-valued optional columns.
func FromRow(row *models.StoreSettings) Settings {
	if row == nil {
		return Defaults(uuid.Nil)
	}
	out := Defaults(row.StoreID)
	if row.Currency != "" {
		out.Currency = row.Currency
	}
	out.TaxRate = row.TaxRate
	out.DeliveryFeeCents = row.DeliveryFeeCents
	out.MinOrderCents = row.MinOrderCents
	if methods := parseMethods(row.EnabledPaymentMethods); len(methods) > 0 {
		out.EnabledPaymentMethods = methods
	}
	out.AcceptingOrders = row.AcceptingOrders
	if row.LowStockThreshold > 0 {
		out.LowStockThreshold = row.LowStockThreshold
	}
	out.PushEnabled = row.PushEnabled
	out.OrderNotificationEmail = row.OrderNotificationEmail
	out.BankTransferInstructions = row.BankTransferInstructions
	if !row.UpdatedAt.IsZero() {
		updated := row.UpdatedAt
		out.UpdatedAt = &updated
	}
	return out
}

// ToRow converts effective settings back into the table shape.
func (s Settings) ToRow() *models.StoreSettings {
	methods := make(pq.StringArray, 0, len(s.EnabledPaymentMethods))
	for _, m := range s.EnabledPaymentMethods {
		methods = append(methods, string(m))
	}
	return &models.StoreSettings{
		StoreID:                  s.StoreID,
		Currency:                 s.Currency,
		TaxRate:                  s.TaxRate,
		DeliveryFeeCents:         s.DeliveryFeeCents,
		MinOrderCents:            s.MinOrderCents,
		EnabledPaymentMethods:    methods,
		AcceptingOrders:          s.AcceptingOrders,
		LowStockThreshold:        s.LowStockThreshold,
		PushEnabled:              s.PushEnabled,
		OrderNotificationEmail:   s.OrderNotificationEmail,
		BankTransferInstructions: s.BankTransferInstructions,
	}
}

// Accepts reports whether method is enabled for the store.
func (s Settings) Accepts(method enums.PaymentMethod) bool {
	for _, m := range s.EnabledPaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

// parseMethods drops unknown values so a stale enum never breaks checkout.
func parseMethods(raw []string) []enums.PaymentMethod {
	out := make([]enums.PaymentMethod, 0, len(raw))
	for _, value := range raw {
		if m, err := enums.ParsePaymentMethod(value); err == nil {
			out = append(out, m)
		}
	}
	return out
}
