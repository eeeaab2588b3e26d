package devices

import (
	"context"
	"errors"
	"fmt"

	"github.com/brewcart/brewcart-backend/internal/consumers"
	"github.com/brewcart/brewcart-backend/internal/settings"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/brewcart/brewcart-backend/pkg/logger"
	"github.com/brewcart/brewcart-backend/pkg/outbox/payloads"
	"github.com/brewcart/brewcart-backend/pkg/push"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

const pushConsumerName = "push"

type settingsGetter interface {
	Get(ctx context.Context, storeID uuid.UUID) (*settings.Settings, error)
}

type pushRecorder interface {
	PushResult(outcome string)
}

// PushConsumer sends a push message to every staff device when a store receives an order.
type PushConsumer struct {
	devices  Repository
	settings settingsGetter
	sender   push.Sender
	metrics  pushRecorder
	logg     *logger.Logger
}

type PushConsumerParams struct {
	Devices  Repository
	Settings settingsGetter
	Sender   push.Sender
	Metrics  pushRecorder
	Logger   *logger.Logger
}

func NewPushConsumer(params PushConsumerParams) (*PushConsumer, error) {
	if params.Devices == nil {
		return nil, errors.New("device repository required")
	}
	if params.Settings == nil {
		return nil, errors.New("settings reader required")
	}
	if params.Sender == nil {
		return nil, errors.New("push sender required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &PushConsumer{
		devices:  params.Devices,
		settings: params.Settings,
		sender:   params.Sender,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (c *PushConsumer) Name() string { return pushConsumerName }

func (c *PushConsumer) Events() []enums.OutboxEventType {
	return []enums.OutboxEventType{enums.EventOrderCreated}
}

// Handle fans the order out to the store's devices. Unregistered tokens are deleted.
// It fails only when no device could be reached, so a redelivery never double-notifies
// devices that already got the message.
func (c *PushConsumer) Handle(ctx context.Context, envelope consumers.Envelope) error {
	var order payloads.OrderCreatedEvent
	if err := envelope.Decode(&order); err != nil {
		return fmt.Errorf("decode order created: %w", err)
	}
	ctx = c.logg.WithStoreID(ctx, order.StoreID.String())

	cfg, err := c.settings.Get(ctx, order.StoreID)
	if err != nil {
		return fmt.Errorf("load store settings: %w", err)
	}
	if !cfg.PushEnabled {
		c.record("disabled")
		c.logg.Info(ctx, "push disabled for store")
		return nil
	}

	devices, err := c.devices.ListForStore(ctx, order.StoreID)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	if len(devices) == 0 {
		c.record("no_devices")
		return nil
	}

	base := orderMessage(order)
	var (
		sent   int
		stale  []string
		failed error
	)
	for _, device := range devices {
		msg := base
		msg.Token = device.Token
		switch err := c.sender.Send(ctx, msg); {
		case err == nil:
			sent++
			c.record("sent")
		case errors.Is(err, push.ErrUnregistered):
			stale = append(stale, device.Token)
			c.record("unregistered")
		default:
			failed = multierr.Append(failed, err)
			c.record("failed")
		}
	}

	if len(stale) > 0 {
		if n, err := c.devices.DeleteTokens(ctx, stale); err != nil {
			c.logg.Error(ctx, "failed to delete unregistered tokens", err)
		} else {
			c.logg.Info(c.logg.WithField(ctx, "deleted", n), "unregistered tokens removed")
		}
	}

	fields := map[string]any{"sent": sent, "stale": len(stale), "devices": len(devices)}
	if failed != nil {
		if sent == 0 && len(stale) < len(devices) {
			return fmt.Errorf("push delivery failed: %w", failed)
		}
		c.logg.Error(c.logg.WithFields(ctx, fields), "some push sends failed", failed)
		return nil
	}
	c.logg.Info(c.logg.WithFields(ctx, fields), "order push delivered")
	return nil
}

func (c *PushConsumer) record(outcome string) {
	if c.metrics != nil {
		c.metrics.PushResult(outcome)
	}
}

func orderMessage(order payloads.OrderCreatedEvent) push.Message {
	total := decimal.New(int64(order.TotalCents), -2).StringFixed(2)
	return push.Message{
		Title: fmt.Sprintf("New order #%d", order.OrderNumber),
		Body:  fmt.Sprintf("%s placed an order for %s %s", order.CustomerName, total, order.Currency),
		Link:  fmt.Sprintf("/admin/orders/%s", order.OrderID),
		Data: map[string]string{
			"order_id": order.OrderID.String(),
			"store_id": order.StoreID.String(),
			"type":     string(enums.NotificationTypeNewOrder),
		},
	}
}
