package db

import (
	"fmt"

	"gorm.io/gorm"
)

// sqliteSchema mirrors the goose migrations using SQLite-compatible types.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		phone TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		last_login_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS stores (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL,
		description TEXT,
		logo_url TEXT,
		contact_email TEXT,
		contact_phone TEXT,
		owner_id TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		CONSTRAINT stores_slug_key UNIQUE (slug)
	)`,
	`CREATE TABLE IF NOT EXISTS store_memberships (
		id TEXT PRIMARY KEY,
		store_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (store_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS store_settings (
		store_id TEXT PRIMARY KEY,
		currency TEXT NOT NULL,
		tax_rate TEXT NOT NULL,
		delivery_fee_cents INTEGER NOT NULL,
		min_order_cents INTEGER NOT NULL,
		enabled_payment_methods TEXT NOT NULL,
		accepting_orders BOOLEAN NOT NULL,
		low_stock_threshold INTEGER NOT NULL,
		push_enabled BOOLEAN NOT NULL,
		order_notification_email TEXT,
		bank_transfer_instructions TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		store_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		sku TEXT,
		category TEXT,
		price_cents INTEGER NOT NULL,
		compare_at_price_cents INTEGER,
		stock INTEGER NOT NULL CHECK (stock >= 0),
		image_urls TEXT NOT NULL DEFAULT '{}',
		is_active BOOLEAN NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		store_id TEXT NOT NULL,
		order_number INTEGER,
		customer_name TEXT NOT NULL,
		customer_phone TEXT NOT NULL,
		customer_email TEXT,
		address_line1 TEXT NOT NULL,
		address_line2 TEXT,
		city TEXT NOT NULL,
		region TEXT,
		postal_code TEXT,
		country TEXT NOT NULL,
		notes TEXT,
		status TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		payment_reference TEXT,
		currency TEXT NOT NULL,
		subtotal_cents INTEGER NOT NULL,
		tax_cents INTEGER NOT NULL,
		delivery_fee_cents INTEGER NOT NULL,
		total_cents INTEGER NOT NULL,
		canceled_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TRIGGER orders_order_number AFTER INSERT ON orders
	BEGIN
		UPDATE orders SET order_number = (SELECT COALESCE(MAX(order_number), 1000) + 1 FROM orders) WHERE id = NEW.id;
	END`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		product_id TEXT,
		product_name TEXT NOT NULL,
		unit_price_cents INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		line_total_cents INTEGER NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS super_admins (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		created_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS support_requests (
		id TEXT PRIMARY KEY,
		store_id TEXT,
		user_id TEXT,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT,
		subject TEXT NOT NULL,
		message TEXT NOT NULL,
		status TEXT NOT NULL,
		admin_notes TEXT,
		resolved_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		store_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		link TEXT,
		read_at DATETIME,
		created_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS device_tokens (
		id TEXT PRIMARY KEY,
		store_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		token TEXT NOT NULL UNIQUE,
		platform TEXT NOT NULL,
		last_seen_at DATETIME NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json BLOB NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// ApplySQLiteSchema creates every application table that does not exist yet.
// Goose migrations target Postgres, so SQLite runs use this instead.
func ApplySQLiteSchema(conn *gorm.DB) error {
	for _, stmt := range sqliteSchema {
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}
