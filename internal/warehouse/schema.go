package warehouse

import (
	"context"
	"fmt"
)

// Warehouse tables. Every statement is idempotent so the store can run it
// on each startup. Merge targets must exist before the first run because
// the loader shapes its temp tables from them.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS time_dimension (
		time_id    TEXT PRIMARY KEY,
		time_desc  TEXT,
		time_level INTEGER,
		parent_id  TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS current_product_dimension (
		product_id                TEXT PRIMARY KEY,
		product_name              TEXT,
		price                     NUMERIC(12,2),
		product_cost              NUMERIC(12,2),
		last_transaction_datetime TIMESTAMP,
		record_version            INTEGER NOT NULL DEFAULT 1,
		is_current                BOOLEAN NOT NULL DEFAULT TRUE,
		parent_sku                TEXT,
		category                  TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS history_product_dimension (
		product_id                TEXT NOT NULL,
		product_name              TEXT,
		price                     NUMERIC(12,2),
		product_cost              NUMERIC(12,2),
		last_transaction_datetime TIMESTAMP,
		record_version            INTEGER NOT NULL,
		is_current                BOOLEAN NOT NULL DEFAULT FALSE,
		parent_sku                TEXT,
		category                  TEXT,
		PRIMARY KEY (product_id, record_version)
	)`,
	`CREATE TABLE IF NOT EXISTS transaction_records (
		receipt_no TEXT PRIMARY KEY,
		sku        TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS fact_transaction_dimension (
		receipt_no        TEXT NOT NULL,
		date              DATE NOT NULL,
		product_id        TEXT NOT NULL,
		time_id           TEXT,
		product_name      TEXT,
		qty               NUMERIC(12,2),
		price             NUMERIC(12,2),
		line_total        NUMERIC(12,2),
		net_total         NUMERIC(12,2),
		total             NUMERIC(12,2),
		discount          NUMERIC(12,2),
		take_out          BOOLEAN,
		time_product      TEXT,
		date_time_product TIMESTAMP,
		net_total_product NUMERIC(12,2),
		PRIMARY KEY (receipt_no, date, product_id)
	)`,
}

// EnsureSchema creates the warehouse tables when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
