package csvstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mybank/banking-system/internal/domain"
)

var transactionHeader = []string{"accountNumber", "timeStamp", "type", "amount", "id"}

// legacyTimestamp is the zone-less layout older data files used; such values
// are read in local time.
const legacyTimestamp = "2006-01-02T15:04:05.999999999"

func (s *Store) LoadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	t, err := readTable(ctx, s.path(TransactionsFile))
	if err != nil {
		return nil, fmt.Errorf("LoadTransactions: %w", err)
	}

	txs := make([]domain.Transaction, 0, len(t.rows))
	for i, row := range t.rows {
		tx, err := parseTransaction(t, row)
		if err != nil {
			return nil, fmt.Errorf("LoadTransactions: row %d: %w", i+2, err)
		}
		txs = append(txs, *tx)
	}
	return txs, nil
}

func parseTransaction(t *table, row []string) (*domain.Transaction, error) {
	f := make(map[string]string, 4)
	for _, col := range transactionHeader[:4] {
		v, err := t.value(row, col)
		if err != nil {
			return nil, err
		}
		f[col] = v
	}

	var tx domain.Transaction
	var err error
	if tx.AccountNumber, err = strconv.Atoi(f["accountNumber"]); err != nil {
		return nil, fmt.Errorf("accountNumber: %w", err)
	}
	if tx.Timestamp, err = parseTimestamp(f["timeStamp"]); err != nil {
		return nil, fmt.Errorf("timeStamp: %w", err)
	}
	if tx.Type, err = domain.ParseEntryType(f["type"]); err != nil {
		return nil, err
	}
	if tx.Amount, err = decimal.NewFromString(f["amount"]); err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}

	if id := t.optional(row, "id"); id != "" {
		if tx.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("id: %w", err)
		}
	} else {
		tx.ID = uuid.New()
	}
	return &tx, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	return time.ParseInLocation(legacyTimestamp, s, time.Local)
}

// appendNew returns existing followed by the entries of txs whose id is not
// already in existing.
func appendNew(existing, txs []domain.Transaction) []domain.Transaction {
	seen := make(map[uuid.UUID]struct{}, len(existing))
	for _, tx := range existing {
		seen[tx.ID] = struct{}{}
	}
	out := existing
	for _, tx := range txs {
		if _, ok := seen[tx.ID]; ok {
			continue
		}
		seen[tx.ID] = struct{}{}
		out = append(out, tx)
	}
	return out
}

func transactionRows(txs []domain.Transaction) [][]string {
	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, []string{
			strconv.Itoa(tx.AccountNumber),
			tx.Timestamp.Format(time.RFC3339Nano),
			string(tx.Type),
			tx.Amount.String(),
			tx.ID.String(),
		})
	}
	return rows
}
