package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mybank/banking-system/internal/domain"
)

const transactionColumns = `id, account_number, created_at, entry_type, amount`

// LoadTransactions returns every transaction in the order it was appended.
func (s *Store) LoadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("LoadTransactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("LoadTransactions: scan: %w", err)
		}
		txs = append(txs, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LoadTransactions: rows: %w", err)
	}
	return txs, nil
}

// appendTransactions inserts txs in order inside tx. Rows whose id is already
// stored are skipped, so retrying a failed save does not duplicate entries.
func (s *Store) appendTransactions(ctx context.Context, tx *sql.Tx, txs []domain.Transaction) error {
	stmt, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range txs {
		_, err := stmt.ExecContext(ctx,
			t.ID, t.AccountNumber, t.Timestamp.UTC(), string(t.Type), t.Amount,
		)
		if err != nil {
			return fmt.Errorf("transaction %s: %w", t.ID, err)
		}
	}
	return nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var entryType string
	err := s.Scan(&t.ID, &t.AccountNumber, &t.Timestamp, &entryType, &t.Amount)
	if err != nil {
		return nil, err
	}
	if t.Type, err = domain.ParseEntryType(entryType); err != nil {
		return nil, err
	}
	return &t, nil
}
