package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/brewcart/brewcart-backend/internal/consumers"
	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/brewcart/brewcart-backend/pkg/logger"
	"github.com/brewcart/brewcart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const consumerName = "notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer turns domain events into in-app notifications for store staff.
type Consumer struct {
	repo repository
	logg *logger.Logger
}

// NewConsumer builds the notification consumer.
func NewConsumer(repo repository, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{repo: repo, logg: logg}, nil
}

func (c *Consumer) Name() string { return consumerName }

func (c *Consumer) Events() []enums.OutboxEventType {
	return []enums.OutboxEventType{
		enums.EventOrderCreated,
		enums.EventOrderStatusChanged,
		enums.EventProductLowStock,
		enums.EventSupportRequestUpdated,
	}
}

// Handle builds at most one notification per event.
func (c *Consumer) Handle(ctx context.Context, envelope consumers.Envelope) error {
	notification, err := buildNotification(envelope)
	if err != nil {
		return err
	}
	if notification == nil {
		c.logg.Info(ctx, "event does not produce a notification")
		return nil
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(c.logg.WithFields(ctx, map[string]any{
		"store_id":          notification.StoreID.String(),
		"notification_type": notification.Type,
	}), "notification created")
	return nil
}

func buildNotification(envelope consumers.Envelope) (*models.Notification, error) {
	switch envelope.EventType {
	case enums.EventOrderCreated:
		var p payloads.OrderCreatedEvent
		if err := envelope.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode order created: %w", err)
		}
		return storeNotification(p.StoreID, enums.NotificationTypeNewOrder,
			fmt.Sprintf("New order #%d", p.OrderNumber),
			fmt.Sprintf("%s placed an order for %s %s (%d items, %s).",
				p.CustomerName, formatCents(p.TotalCents), p.Currency, p.ItemCount, p.PaymentMethod),
			orderLink(p.OrderID))
	case enums.EventOrderStatusChanged:
		var p payloads.OrderStatusChangedEvent
		if err := envelope.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode order status change: %w", err)
		}
		message := fmt.Sprintf("Order #%d moved from %s to %s.", p.OrderNumber, p.PreviousStatus, p.Status)
		if p.Reason != "" {
			message = fmt.Sprintf("%s Reason: %s", message, p.Reason)
		}
		return storeNotification(p.StoreID, enums.NotificationTypeOrderUpdate,
			fmt.Sprintf("Order #%d %s", p.OrderNumber, p.Status), message, orderLink(p.OrderID))
	case enums.EventProductLowStock:
		var p payloads.ProductLowStockEvent
		if err := envelope.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode low stock: %w", err)
		}
		title := "Low stock"
		if p.Stock == 0 {
			title = "Out of stock"
		}
		return storeNotification(p.StoreID, enums.NotificationTypeLowStock,
			fmt.Sprintf("%s: %s", title, p.Name),
			fmt.Sprintf("%s has %d left (threshold %d).", p.Name, p.Stock, p.Threshold),
			fmt.Sprintf("/admin/products/%s", p.ProductID))
	case enums.EventSupportRequestUpdated:
		var p payloads.SupportRequestUpdatedEvent
		if err := envelope.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode support update: %w", err)
		}
		if p.StoreID == nil {
			return nil, nil
		}
		message := fmt.Sprintf("Your request %q is now %s.", p.Subject, strings.ReplaceAll(string(p.Status), "_", " "))
		if p.AdminNotes != "" {
			message = fmt.Sprintf("%s Note: %s", message, p.AdminNotes)
		}
		return storeNotification(*p.StoreID, enums.NotificationTypeSupportUpdate,
			"Support request updated", message, "/admin/support")
	}
	return nil, nil
}

func storeNotification(storeID uuid.UUID, kind enums.NotificationType, title, message, link string) (*models.Notification, error) {
	if storeID == uuid.Nil {
		return nil, fmt.Errorf("store id missing")
	}
	return &models.Notification{
		StoreID: storeID,
		Type:    kind,
		Title:   title,
		Message: strings.TrimSpace(message),
		Link:    &link,
	}, nil
}

func orderLink(orderID uuid.UUID) string {
	return fmt.Sprintf("/admin/orders/%s", orderID)
}

func formatCents(cents int) string {
	return decimal.New(int64(cents), -2).StringFixed(2)
}
