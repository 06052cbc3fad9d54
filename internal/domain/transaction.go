package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryTypeCredit EntryType = "CREDIT"
	EntryTypeDebit  EntryType = "DEBIT"
)

func ParseEntryType(s string) (EntryType, error) {
	switch t := EntryType(s); t {
	case EntryTypeCredit, EntryTypeDebit:
		return t, nil
	}
	return "", fmt.Errorf("ParseEntryType: unknown entry type %q", s)
}

type Transaction struct {
	ID            uuid.UUID
	AccountNumber int
	Timestamp     time.Time
	Type          EntryType
	Amount        decimal.Decimal
}

func (t Transaction) String() string {
	return fmt.Sprintf("%s %-6s %s USD (account %d)",
		t.Timestamp.Format("02-01-2006 15:04:05"), t.Type, t.Amount.StringFixed(2), t.AccountNumber)
}
