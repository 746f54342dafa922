package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// CurrentSchemaVersion is the version of the last migration.
const CurrentSchemaVersion = "1.2.0"

// Migration is one schema step with per-dialect statements.
type Migration struct {
	Version  string
	Postgres []string
	SQLite   []string
}

func (m Migration) statements(d Dialect) []string {
	if d == Postgres {
		return m.Postgres
	}
	return m.SQLite
}

// AllMigrations lists the migrations in order.
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Postgres: []string{
			`CREATE TABLE IF NOT EXISTS customers (
				id BIGSERIAL PRIMARY KEY,
				first_name TEXT NOT NULL,
				last_name TEXT NOT NULL,
				email TEXT NOT NULL UNIQUE,
				customer_type TEXT NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				is_blocked BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE TABLE IF NOT EXISTS products (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				sku TEXT NOT NULL UNIQUE,
				price NUMERIC(14,2) NOT NULL,
				currency CHAR(3) NOT NULL,
				stock_quantity INT NOT NULL CHECK (stock_quantity >= 0),
				status TEXT NOT NULL,
				category_id BIGINT NOT NULL DEFAULT 0,
				brand_id BIGINT,
				weight NUMERIC(10,3) NOT NULL DEFAULT 0,
				version BIGINT NOT NULL DEFAULT 1,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS orders (
				id BIGSERIAL PRIMARY KEY,
				order_number TEXT NOT NULL UNIQUE,
				customer_id BIGINT NOT NULL REFERENCES customers(id),
				status TEXT NOT NULL,
				shipping_address JSONB NOT NULL,
				billing_address JSONB NOT NULL,
				payment_method TEXT NOT NULL,
				shipping_method TEXT NOT NULL,
				currency CHAR(3) NOT NULL,
				total_amount NUMERIC(14,2) NOT NULL,
				shipping_cost NUMERIC(14,2) NOT NULL,
				tax_amount NUMERIC(14,2) NOT NULL,
				discount_amount NUMERIC(14,2) NOT NULL,
				final_amount NUMERIC(14,2) NOT NULL CHECK (final_amount >= 0),
				notes TEXT NOT NULL DEFAULT '',
				tracking_number TEXT NOT NULL DEFAULT '',
				estimated_delivery_date TIMESTAMPTZ,
				shipped_at TIMESTAMPTZ,
				delivered_at TIMESTAMPTZ,
				cancelled_at TIMESTAMPTZ,
				version BIGINT NOT NULL DEFAULT 1,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id)`,
			`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at)`,
			`CREATE TABLE IF NOT EXISTS order_items (
				id BIGSERIAL PRIMARY KEY,
				order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
				product_id BIGINT NOT NULL REFERENCES products(id),
				quantity INT NOT NULL CHECK (quantity > 0),
				unit_price NUMERIC(14,2) NOT NULL,
				total_price NUMERIC(14,2) NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)`,
		},
		SQLite: []string{
			`CREATE TABLE IF NOT EXISTS customers (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				first_name TEXT NOT NULL,
				last_name TEXT NOT NULL,
				email TEXT NOT NULL UNIQUE,
				customer_type TEXT NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT 1,
				is_blocked BOOLEAN NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS products (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				sku TEXT NOT NULL UNIQUE,
				price TEXT NOT NULL,
				currency TEXT NOT NULL,
				stock_quantity INTEGER NOT NULL CHECK (stock_quantity >= 0),
				status TEXT NOT NULL,
				category_id INTEGER NOT NULL DEFAULT 0,
				brand_id INTEGER,
				weight TEXT NOT NULL DEFAULT '0',
				version INTEGER NOT NULL DEFAULT 1,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS orders (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				order_number TEXT NOT NULL UNIQUE,
				customer_id INTEGER NOT NULL REFERENCES customers(id),
				status TEXT NOT NULL,
				shipping_address TEXT NOT NULL,
				billing_address TEXT NOT NULL,
				payment_method TEXT NOT NULL,
				shipping_method TEXT NOT NULL,
				currency TEXT NOT NULL,
				total_amount TEXT NOT NULL,
				shipping_cost TEXT NOT NULL,
				tax_amount TEXT NOT NULL,
				discount_amount TEXT NOT NULL,
				final_amount TEXT NOT NULL,
				notes TEXT NOT NULL DEFAULT '',
				tracking_number TEXT NOT NULL DEFAULT '',
				estimated_delivery_date TIMESTAMP,
				shipped_at TIMESTAMP,
				delivered_at TIMESTAMP,
				cancelled_at TIMESTAMP,
				version INTEGER NOT NULL DEFAULT 1,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id)`,
			`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at)`,
			`CREATE TABLE IF NOT EXISTS order_items (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				order_id INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
				product_id INTEGER NOT NULL REFERENCES products(id),
				quantity INTEGER NOT NULL CHECK (quantity > 0),
				unit_price TEXT NOT NULL,
				total_price TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)`,
		},
	},
	{
		Version: "1.1.0",
		Postgres: []string{
			`CREATE TABLE IF NOT EXISTS outbox_events (
				id BIGSERIAL PRIMARY KEY,
				event_id UUID NOT NULL UNIQUE,
				stream_type TEXT NOT NULL,
				stream_id TEXT NOT NULL,
				event_type TEXT NOT NULL,
				payload JSONB NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				sent_at TIMESTAMPTZ
			)`,
			`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox_events(id) WHERE sent_at IS NULL`,
		},
		SQLite: []string{
			`CREATE TABLE IF NOT EXISTS outbox_events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				event_id TEXT NOT NULL UNIQUE,
				stream_type TEXT NOT NULL,
				stream_id TEXT NOT NULL,
				event_type TEXT NOT NULL,
				payload TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				sent_at TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox_events(id) WHERE sent_at IS NULL`,
		},
	},
	{
		Version: "1.2.0",
		Postgres: []string{
			`CREATE TABLE IF NOT EXISTS order_idempotency (
				idempotency_key TEXT PRIMARY KEY,
				order_id BIGINT NOT NULL REFERENCES orders(id),
				created_at TIMESTAMPTZ NOT NULL
			)`,
		},
		SQLite: []string{
			`CREATE TABLE IF NOT EXISTS order_idempotency (
				idempotency_key TEXT PRIMARY KEY,
				order_id INTEGER NOT NULL REFERENCES orders(id),
				created_at TIMESTAMP NOT NULL
			)`,
		},
	},
}

// SchemaVersion returns the highest applied migration version, or 0.0.0.
func SchemaVersion(ctx context.Context, db *sql.DB, d Dialect) (*semver.Version, error) {
	c := conn{q: db, dialect: d}
	if _, err := c.exec(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return nil, fmt.Errorf("failed to create schema_version table: %w", err)
	}

	rows, err := c.query(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer rows.Close()

	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan schema version: %w", err)
		}
		v, err := semver.NewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %s: %w", raw, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

// ApplyMigrations runs every migration newer than the recorded schema version, each
// in its own transaction.
func ApplyMigrations(ctx context.Context, db *sql.DB, d Dialect) error {
	current, err := SchemaVersion(ctx, db, d)
	if err != nil {
		return err
	}

	for _, m := range AllMigrations {
		version, err := semver.NewVersion(m.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", m.Version, err)
		}
		if !current.LessThan(version) {
			continue
		}
		if err := applyMigration(ctx, db, d, m); err != nil {
			return err
		}
		current = version
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, d Dialect, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", m.Version, err)
	}
	defer tx.Rollback()

	c := conn{q: tx, dialect: d}
	for _, stmt := range m.statements(d) {
		if _, err := c.exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.Version, err)
		}
	}
	if _, err := c.exec(ctx, "INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.Version, err)
	}
	return tx.Commit()
}
