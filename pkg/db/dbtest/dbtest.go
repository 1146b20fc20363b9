// Package dbtest opens throwaway sqlite databases carrying the ledger schema.
// The DDL mirrors pkg/migrate/migrations with sqlite types.
package dbtest

import (
	"fmt"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/inkhouse/backoffice/pkg/db"
)

var schema = []string{
	`CREATE TABLE customers (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		phone TEXT,
		email TEXT,
		address TEXT,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		created_by TEXT NOT NULL,
		updated_by TEXT NOT NULL
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL REFERENCES customers(id) ON DELETE RESTRICT,
		order_number TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('pending','in_progress','completed','delivered')),
		total_amount NUMERIC NOT NULL CHECK (total_amount > 0),
		amount_paid NUMERIC NOT NULL DEFAULT 0 CHECK (amount_paid >= 0),
		estimated_delivery_date DATETIME,
		notes TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		created_by TEXT NOT NULL,
		updated_by TEXT NOT NULL,
		CONSTRAINT orders_amount_paid_le_total CHECK (amount_paid <= total_amount)
	)`,
	`CREATE UNIQUE INDEX orders_order_number_key ON orders(order_number)`,
	`CREATE INDEX orders_customer_created_idx ON orders(customer_id, created_at)`,
	`CREATE TABLE order_payments (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		amount NUMERIC NOT NULL CHECK (amount > 0),
		payment_method TEXT NOT NULL,
		payment_date DATETIME NOT NULL,
		notes TEXT,
		created_by TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE customer_previous_balances (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL REFERENCES customers(id),
		total_amount NUMERIC NOT NULL CHECK (total_amount > 0),
		amount_paid NUMERIC NOT NULL DEFAULT 0 CHECK (amount_paid >= 0),
		notes TEXT,
		superseded_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		created_by TEXT NOT NULL,
		updated_by TEXT NOT NULL,
		CONSTRAINT customer_previous_balances_paid_le_total CHECK (amount_paid <= total_amount)
	)`,
	`CREATE UNIQUE INDEX customer_previous_balances_live_key ON customer_previous_balances(customer_id) WHERE superseded_at IS NULL`,
	`CREATE TABLE customer_balance_payments (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL REFERENCES customers(id),
		previous_balance_id TEXT NOT NULL REFERENCES customer_previous_balances(id),
		amount NUMERIC NOT NULL CHECK (amount > 0),
		payment_method TEXT NOT NULL,
		payment_date DATETIME NOT NULL,
		notes TEXT,
		created_by TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE activity_log_entries (
		id TEXT PRIMARY KEY,
		subject_type TEXT NOT NULL CHECK (subject_type IN ('order','customer')),
		subject_id TEXT NOT NULL,
		action TEXT NOT NULL,
		details TEXT NOT NULL,
		metadata BLOB,
		actor_id TEXT NOT NULL,
		request_id TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX activity_log_entries_subject_idx ON activity_log_entries(subject_type, subject_id, created_at)`,
}

// Open returns a sqlite-backed GORM handle with the ledger schema applied.
// Each call gets its own database file under t.TempDir(). Writers take the
// lock at BEGIN so concurrent transactions queue instead of failing.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger.db")
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL", path)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                db.NowUTC,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v\n%s", err, stmt)
		}
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// Client wraps Open in a db.Client.
func Client(t testing.TB) *db.Client {
	t.Helper()
	return db.Wrap(Open(t))
}
