package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/outbox"
	"github.com/brewcart/brewcart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	maxTaxRate      = decimal.NewFromInt(100)
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service reads and writes per-store settings.
type Service interface {
	Get(ctx context.Context, storeID uuid.UUID) (*Settings, error)
	Upsert(ctx context.Context, actor outbox.ActorRef, storeID uuid.UUID, patch Patch) (*Settings, error)
	// SeedDefaults writes the default row inside an existing transaction.
	SeedDefaults(ctx context.Context, tx *gorm.DB, storeID uuid.UUID) error
}

type ServiceParams struct {
	Tx            txRunner
	Repo          Repository
	Outbox        outbox.Emitter
	StripeEnabled bool
}

type service struct {
	tx            txRunner
	repo          Repository
	outbox        outbox.Emitter
	stripeEnabled bool
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		tx:            params.Tx,
		repo:          params.Repo,
		outbox:        params.Outbox,
		stripeEnabled: params.StripeEnabled,
	}, nil
}

func (s *service) Get(ctx context.Context, storeID uuid.UUID) (*Settings, error) {
	current, err := load(ctx, s.repo, storeID)
	if err != nil {
		return nil, err
	}
	return &current, nil
}

func load(ctx context.Context, repo Repository, storeID uuid.UUID) (Settings, error) {
	row, err := repo.FindByStoreID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Defaults(storeID), nil
		}
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store settings")
	}
	return FromRow(row), nil
}

func (s *service) Upsert(ctx context.Context, actor outbox.ActorRef, storeID uuid.UUID, patch Patch) (*Settings, error) {
	var result Settings
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := load(ctx, repo, storeID)
		if err != nil {
			return err
		}

		merged := apply(current, patch)
		if err := s.validate(merged); err != nil {
			return err
		}

		row := merged.ToRow()
		if err := repo.Upsert(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save store settings")
		}
		result = FromRow(row)

		record, err := json.Marshal(result)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode settings")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStoreSettingsUpdated,
			AggregateType: enums.AggregateStoreSettings,
			AggregateID:   storeID,
			Actor:         &actor,
			Data:          payloads.StoreSettingsUpdatedEvent{StoreID: storeID, Record: record},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit settings updated")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) SeedDefaults(ctx context.Context, tx *gorm.DB, storeID uuid.UUID) error {
	return s.repo.WithTx(tx).Upsert(ctx, Defaults(storeID).ToRow())
}

func apply(current Settings, patch Patch) Settings {
	out := current
	if patch.Currency != nil {
		out.Currency = strings.ToUpper(strings.TrimSpace(*patch.Currency))
	}
	if patch.TaxRate != nil {
		out.TaxRate = *patch.TaxRate
	}
	if patch.DeliveryFeeCents != nil {
		out.DeliveryFeeCents = *patch.DeliveryFeeCents
	}
	if patch.MinOrderCents != nil {
		out.MinOrderCents = *patch.MinOrderCents
	}
	if patch.EnabledPaymentMethods != nil {
		out.EnabledPaymentMethods = dedupeMethods(patch.EnabledPaymentMethods)
	}
	if patch.AcceptingOrders != nil {
		out.AcceptingOrders = *patch.AcceptingOrders
	}
	if patch.LowStockThreshold != nil {
		out.LowStockThreshold = *patch.LowStockThreshold
	}
	if patch.PushEnabled != nil {
		out.PushEnabled = *patch.PushEnabled
	}
	if patch.OrderNotificationEmail != nil {
		out.OrderNotificationEmail = trimmedOrNil(*patch.OrderNotificationEmail)
	}
	if patch.BankTransferInstructions != nil {
		out.BankTransferInstructions = trimmedOrNil(*patch.BankTransferInstructions)
	}
	return out
}

func (s *service) validate(in Settings) error {
	details := map[string]any{}
	if !currencyPattern.MatchString(in.Currency) {
		details["currency"] = "must be a 3-letter ISO 4217 code"
	}
	if in.TaxRate.IsNegative() || in.TaxRate.GreaterThan(maxTaxRate) {
		details["tax_rate"] = "must be between 0 and 100"
	}
	if in.DeliveryFeeCents < 0 {
		details["delivery_fee_cents"] = "must be >= 0"
	}
	if in.MinOrderCents < 0 {
		details["min_order_cents"] = "must be >= 0"
	}
	// A stored zero reads back as the default, so it cannot mean "never alert".
	if in.LowStockThreshold < 1 {
		details["low_stock_threshold"] = "must be >= 1"
	}
	if len(in.EnabledPaymentMethods) == 0 {
		details["enabled_payment_methods"] = "at least one payment method is required"
	}
	for _, m := range in.EnabledPaymentMethods {
		if !m.IsValid() {
			details["enabled_payment_methods"] = fmt.Sprintf("unknown payment method %q", m)
			break
		}
		if m == enums.PaymentMethodCard && !s.stripeEnabled {
			details["enabled_payment_methods"] = "card payments are not available"
			break
		}
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid store settings").WithDetails(details)
	}
	return nil
}

func dedupeMethods(in []enums.PaymentMethod) []enums.PaymentMethod {
	seen := make(map[enums.PaymentMethod]struct{}, len(in))
	out := make([]enums.PaymentMethod, 0, len(in))
	for _, m := range in {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

func trimmedOrNil(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
