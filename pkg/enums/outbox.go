package enums

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder          OutboxAggregateType = "order"
	AggregateProduct        OutboxAggregateType = "product"
	AggregateStore          OutboxAggregateType = "store"
	AggregateStoreSettings  OutboxAggregateType = "store_settings"
	AggregateSupportRequest OutboxAggregateType = "support_request"
)

var aggregateTypes = values[OutboxAggregateType]{
	AggregateOrder,
	AggregateProduct,
	AggregateStore,
	AggregateStoreSettings,
	AggregateSupportRequest,
}

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return aggregateTypes.parse(value, "aggregate type")
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order_created"
	EventOrderStatusChanged    OutboxEventType = "order_status_changed"
	EventOrderPaymentUpdated   OutboxEventType = "order_payment_updated"
	EventProductChanged        OutboxEventType = "product_changed"
	EventProductLowStock       OutboxEventType = "product_low_stock"
	EventStoreUpdated          OutboxEventType = "store_updated"
	EventStoreSettingsUpdated  OutboxEventType = "store_settings_updated"
	EventSupportRequestCreated OutboxEventType = "support_request_created"
	EventSupportRequestUpdated OutboxEventType = "support_request_updated"
)

var eventTypes = values[OutboxEventType]{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderPaymentUpdated,
	EventProductChanged,
	EventProductLowStock,
	EventStoreUpdated,
	EventStoreSettingsUpdated,
	EventSupportRequestCreated,
	EventSupportRequestUpdated,
}

func (e OutboxEventType) IsValid() bool { return eventTypes.has(e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return eventTypes.parse(value, "event type")
}

// OutboxDLQErrorReason records why a row left the publish loop.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
