package repository

import (
	"context"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/invoice-processor/internal/common"
)

const tableInvoiceRecords = "invoice_records"

// schema is valid for both SQLite and Postgres.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS invoice_records (
		id TEXT PRIMARY KEY,
		invoice_no TEXT NOT NULL,
		revision INTEGER NOT NULL,
		vendor TEXT NOT NULL DEFAULT '',
		invoice_date TEXT NOT NULL DEFAULT '',
		total_amount DOUBLE PRECISION,
		status TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		source_path TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		processed_at TEXT NOT NULL,
		result_json TEXT NOT NULL,
		UNIQUE (invoice_no, revision)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invoice_records_hash ON invoice_records (content_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_invoice_records_status ON invoice_records (status)`,
	`CREATE INDEX IF NOT EXISTS idx_invoice_records_processed_at ON invoice_records (processed_at)`,
}

// Migrate creates the record store tables when missing.
func Migrate(ctx context.Context, drv *entsql.Driver) error {
	for _, stmt := range schema {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return common.NewAppError("DB_ERROR", "migrate", err)
		}
	}
	return nil
}
