package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

type driverNamer interface {
	DriverName() string
}

func isPostgres(db driverNamer) bool {
	return db.DriverName() == DriverPostgres
}

// forUpdate returns the row-lock suffix for the dialect. SQLite has no row
// locks; its write transactions are serialised by the single connection.
func forUpdate(db driverNamer) string {
	if isPostgres(db) {
		return " FOR UPDATE"
	}
	return ""
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS loans (
		id {{id}} PRIMARY KEY,
		loan_number TEXT NOT NULL UNIQUE,
		member_id TEXT NOT NULL,
		principal_amount BIGINT NOT NULL,
		interest_rate {{rate}} NOT NULL,
		monthly_principal_payment BIGINT NOT NULL,
		penalty_amount BIGINT NOT NULL DEFAULT 0,
		loan_term INTEGER NOT NULL,
		total_interest_amount BIGINT NOT NULL,
		total_penalty_amount BIGINT NOT NULL DEFAULT 0,
		total_amount BIGINT NOT NULL,
		amount_paid BIGINT NOT NULL DEFAULT 0,
		principal_paid BIGINT NOT NULL DEFAULT 0,
		interest_paid BIGINT NOT NULL DEFAULT 0,
		remaining_principal BIGINT NOT NULL,
		payment_count INTEGER NOT NULL DEFAULT 0,
		late_payment_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		purpose TEXT NOT NULL DEFAULT '',
		collateral TEXT NOT NULL DEFAULT '',
		guarantor TEXT NOT NULL DEFAULT '',
		rejection_reason TEXT NOT NULL DEFAULT '',
		application_date {{time}} NOT NULL,
		approval_date {{time}},
		disbursement_date {{time}},
		next_payment_date {{time}},
		maturity_date {{time}},
		created_at {{time}} NOT NULL,
		updated_at {{time}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_status ON loans (status)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_member ON loans (member_id)`,
	`CREATE TABLE IF NOT EXISTS installments (
		id {{id}} PRIMARY KEY,
		loan_id {{id}} NOT NULL REFERENCES loans (id),
		member_id TEXT NOT NULL,
		sequence_number INTEGER NOT NULL,
		opening_balance BIGINT NOT NULL,
		principal_due BIGINT NOT NULL,
		interest_due BIGINT NOT NULL,
		penalty_due BIGINT NOT NULL,
		total_due BIGINT NOT NULL,
		due_date {{time}} NOT NULL,
		status TEXT NOT NULL,
		payment_date {{time}},
		payment_method TEXT NOT NULL DEFAULT '',
		transaction_id TEXT NOT NULL DEFAULT '',
		late_fee_charged BIGINT NOT NULL DEFAULT 0,
		created_at {{time}} NOT NULL,
		updated_at {{time}} NOT NULL,
		UNIQUE (loan_id, sequence_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_installments_status_due ON installments (status, due_date)`,
	`CREATE TABLE IF NOT EXISTS fines (
		id {{id}} PRIMARY KEY,
		fine_number TEXT NOT NULL UNIQUE,
		member_id TEXT NOT NULL,
		loan_id {{id}} REFERENCES loans (id),
		type TEXT NOT NULL,
		amount BIGINT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		date {{time}} NOT NULL,
		due_date {{time}} NOT NULL,
		status TEXT NOT NULL,
		payment_date {{time}},
		payment_method TEXT NOT NULL DEFAULT '',
		transaction_id TEXT NOT NULL DEFAULT '',
		waived_by TEXT NOT NULL DEFAULT '',
		waive_reason TEXT NOT NULL DEFAULT '',
		created_at {{time}} NOT NULL,
		updated_at {{time}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fines_loan_type_status ON fines (loan_id, type, status)`,
	`CREATE TABLE IF NOT EXISTS display_sequences (
		name TEXT PRIMARY KEY,
		current_value BIGINT NOT NULL
	)`,
}

// Migrate creates the ledger tables if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	replacer := strings.NewReplacer("{{id}}", "TEXT", "{{time}}", "DATETIME", "{{rate}}", "TEXT")
	if isPostgres(db) {
		replacer = strings.NewReplacer("{{id}}", "UUID", "{{time}}", "TIMESTAMPTZ", "{{rate}}", "NUMERIC(9,4)")
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, replacer.Replace(stmt)); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
