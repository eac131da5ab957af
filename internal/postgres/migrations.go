package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		category       TEXT NOT NULL,
		buying_price   NUMERIC NOT NULL DEFAULT 0 CHECK (buying_price >= 0),
		selling_price  NUMERIC NOT NULL DEFAULT 0 CHECK (selling_price >= 0),
		stock_quantity INTEGER CHECK (stock_quantity >= 0),
		active         BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS sales_orders (
		id            TEXT PRIMARY KEY,
		customer_name TEXT NOT NULL DEFAULT '',
		order_date    TIMESTAMPTZ NOT NULL,
		total_amount  NUMERIC NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sales_items (
		id             TEXT PRIMARY KEY,
		order_id       TEXT NOT NULL REFERENCES sales_orders(id) ON DELETE CASCADE,
		product_id     TEXT NOT NULL REFERENCES products(id),
		position       INTEGER NOT NULL,
		product_name   TEXT NOT NULL,
		quantity       INTEGER NOT NULL CHECK (quantity > 0),
		price_per_unit NUMERIC NOT NULL,
		line_total     NUMERIC NOT NULL,
		UNIQUE (order_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS sales_orders_order_date_idx ON sales_orders (order_date DESC)`,
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
