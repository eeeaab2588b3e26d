package enums

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeNewOrder      NotificationType = "new_order"
	NotificationTypeOrderUpdate   NotificationType = "order_update"
	NotificationTypeLowStock      NotificationType = "low_stock"
	NotificationTypeSupportUpdate NotificationType = "support_update"
	NotificationTypeSystem        NotificationType = "system"
)

var notificationTypes = values[NotificationType]{
	NotificationTypeNewOrder,
	NotificationTypeOrderUpdate,
	NotificationTypeLowStock,
	NotificationTypeSupportUpdate,
	NotificationTypeSystem,
}

func (n NotificationType) IsValid() bool { return notificationTypes.has(n) }

func ParseNotificationType(value string) (NotificationType, error) {
	return notificationTypes.parse(value, "notification type")
}
