package service

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mybank/banking-system/internal/domain"
	"github.com/mybank/banking-system/internal/logging"
)

// TransactionLog is an append-only record of credits and debits. Entries are
// never modified once recorded.
type TransactionLog struct {
	mu      sync.RWMutex
	entries []domain.Transaction
	saved   int
	now     func() time.Time
}

// NewTransactionLog returns an empty log. now defaults to time.Now.
func NewTransactionLog(now func() time.Time) *TransactionLog {
	if now == nil {
		now = time.Now
	}
	return &TransactionLog{now: now}
}

// Restore replaces the log with txs, all of which count as already persisted.
func (l *TransactionLog) Restore(txs []domain.Transaction) {
	entries := make([]domain.Transaction, len(txs))
	copy(entries, txs)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = entries
	l.saved = len(entries)
}

func (l *TransactionLog) Record(ctx context.Context, accountNumber int, entryType domain.EntryType, amount decimal.Decimal) domain.Transaction {
	tx := domain.Transaction{
		ID:            uuid.New(),
		AccountNumber: accountNumber,
		Timestamp:     l.now(),
		Type:          entryType,
		Amount:        amount,
	}

	l.mu.Lock()
	l.entries = append(l.entries, tx)
	l.mu.Unlock()

	logging.FromContext(ctx).Debug("transaction recorded",
		"transaction_id", tx.ID,
		"account_number", accountNumber,
		"type", entryType,
		"amount", amount,
	)
	return tx
}

// Query yields the account's transactions in insertion order. The sequence
// covers the entries present when Query was called and may be ranged over
// any number of times.
func (l *TransactionLog) Query(accountNumber int) iter.Seq[domain.Transaction] {
	l.mu.RLock()
	snapshot := l.entries[:len(l.entries):len(l.entries)]
	l.mu.RUnlock()

	return func(yield func(domain.Transaction) bool) {
		for _, tx := range snapshot {
			if tx.AccountNumber != accountNumber {
				continue
			}
			if !yield(tx) {
				return
			}
		}
	}
}

// QueryRange yields the account's transactions with from <= timestamp < to,
// both bounds taken at the start of their day.
func (l *TransactionLog) QueryRange(accountNumber int, from, to time.Time) (iter.Seq[domain.Transaction], error) {
	fromDay, toDay := startOfDay(from), startOfDay(to)
	today := startOfDay(l.now().In(from.Location()))

	if toDay.Before(fromDay) {
		return nil, fmt.Errorf("QueryRange: end before start: %w", domain.ErrInvalidRange)
	}
	if fromDay.After(today) || toDay.After(today) {
		return nil, fmt.Errorf("QueryRange: date in the future: %w", domain.ErrInvalidRange)
	}

	all := l.Query(accountNumber)
	return func(yield func(domain.Transaction) bool) {
		for tx := range all {
			if tx.Timestamp.Before(fromDay) || !tx.Timestamp.Before(toDay) {
				continue
			}
			if !yield(tx) {
				return
			}
		}
	}, nil
}

func (l *TransactionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Unsaved returns the entries recorded since the last MarkSaved, and the mark
// to hand to MarkSaved once they are stored.
func (l *TransactionLog) Unsaved() ([]domain.Transaction, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pending := make([]domain.Transaction, len(l.entries)-l.saved)
	copy(pending, l.entries[l.saved:])
	return pending, len(l.entries)
}

// MarkSaved records that every entry before mark is persisted.
func (l *TransactionLog) MarkSaved(mark int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.saved = max(l.saved, min(mark, len(l.entries)))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
