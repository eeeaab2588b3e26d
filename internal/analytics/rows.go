package analytics

import (
	"encoding/json"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// OrderFactRow mirrors the order_events table: one row per order lifecycle event.
type OrderFactRow struct {
	EventID       string             `bigquery:"event_id"`
	EventType     string             `bigquery:"event_type"`
	OccurredAt    time.Time          `bigquery:"occurred_at"`
	OrderID       string             `bigquery:"order_id"`
	StoreID       string             `bigquery:"store_id"`
	OrderNumber   *int64             `bigquery:"order_number"`
	Status        *string            `bigquery:"status"`
	PaymentMethod *string            `bigquery:"payment_method"`
	PaymentStatus *string            `bigquery:"payment_status"`
	Currency      *string            `bigquery:"currency"`
	SubtotalCents *int64             `bigquery:"subtotal_cents"`
	TaxCents      *int64             `bigquery:"tax_cents"`
	TotalCents    *int64             `bigquery:"total_cents"`
	ItemCount     *int64             `bigquery:"item_count"`
	Payload       cbigquery.NullJSON `bigquery:"payload"`
}

// saver keys the streaming insert on the event id so BigQuery drops
// best-effort duplicates when a batch is retried.
func (r *OrderFactRow) saver() *cbigquery.StructSaver {
	return &cbigquery.StructSaver{Struct: r, InsertID: r.EventID}
}

// jsonColumn stores the raw event payload; an empty payload is NULL.
func jsonColumn(raw json.RawMessage) cbigquery.NullJSON {
	if len(raw) == 0 {
		return cbigquery.NullJSON{}
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(raw)}
}
