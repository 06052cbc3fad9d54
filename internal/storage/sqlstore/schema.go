package sqlstore

import (
	"context"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY,
		username      TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		first_name    TEXT NOT NULL,
		last_name     TEXT NOT NULL,
		user_type     TEXT NOT NULL,
		is_active     BOOLEAN NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		account_number    INTEGER PRIMARY KEY,
		pin_hash          TEXT NOT NULL,
		user_id           INTEGER UNIQUE NOT NULL,
		account_type      TEXT NOT NULL,
		account_plan      TEXT NOT NULL,
		balance           NUMERIC NOT NULL,
		withdraw_limit    NUMERIC NOT NULL,
		deposit_limit     NUMERIC NOT NULL,
		is_active         BOOLEAN NOT NULL,
		overdraft_counter INTEGER NOT NULL,
		favorites         TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		seq            BIGSERIAL PRIMARY KEY,
		id             UUID UNIQUE NOT NULL,
		account_number INTEGER NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		entry_type     TEXT NOT NULL,
		amount         NUMERIC NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_account_idx ON transactions (account_number)`,
}

// SQLite keeps decimals as TEXT so amounts survive without float rounding.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY,
		username      TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		first_name    TEXT NOT NULL,
		last_name     TEXT NOT NULL,
		user_type     TEXT NOT NULL,
		is_active     BOOLEAN NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		account_number    INTEGER PRIMARY KEY,
		pin_hash          TEXT NOT NULL,
		user_id           INTEGER UNIQUE NOT NULL,
		account_type      TEXT NOT NULL,
		account_plan      TEXT NOT NULL,
		balance           TEXT NOT NULL,
		withdraw_limit    TEXT NOT NULL,
		deposit_limit     TEXT NOT NULL,
		is_active         BOOLEAN NOT NULL,
		overdraft_counter INTEGER NOT NULL,
		favorites         TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		seq            INTEGER PRIMARY KEY AUTOINCREMENT,
		id             TEXT UNIQUE NOT NULL,
		account_number INTEGER NOT NULL,
		created_at     TIMESTAMP NOT NULL,
		entry_type     TEXT NOT NULL,
		amount         TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_account_idx ON transactions (account_number)`,
}

// Migrate creates any missing tables. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if s.dialect == Postgres {
		schema = postgresSchema
	}

	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("Migrate: %w", err)
		}
	}
	return nil
}
