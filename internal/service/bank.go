package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mybank/banking-system/internal/domain"
	"github.com/mybank/banking-system/internal/logging"
	"github.com/mybank/banking-system/internal/password"
)

// Store is the persistence adapter the bank loads from and saves to. Save
// must be all-or-nothing: on error the previously saved state is unchanged.
type Store interface {
	LoadUsers(ctx context.Context) ([]domain.User, error)
	LoadAccounts(ctx context.Context) ([]domain.Account, error)
	LoadTransactions(ctx context.Context) ([]domain.Transaction, error)
	Save(ctx context.Context, st domain.State) error
}

// Bank wires the user directory, account ledger and transaction log together
// and moves their state to and from a Store.
type Bank struct {
	Users        *UserDirectory
	Accounts     *AccountLedger
	Transactions *TransactionLog

	store Store
}

func NewBank(store Store, hasher password.Hasher, now func() time.Time) *Bank {
	users := NewUserDirectory(hasher)
	txlog := NewTransactionLog(now)
	return &Bank{
		Users:        users,
		Accounts:     NewAccountLedger(users, txlog, hasher),
		Transactions: txlog,
		store:        store,
	}
}

// Load reads users, accounts and transactions from the store. Nothing is
// replaced unless all three load cleanly.
func (b *Bank) Load(ctx context.Context) error {
	users, err := b.store.LoadUsers(ctx)
	if err != nil {
		return fmt.Errorf("Load: users: %w", err)
	}
	accounts, err := b.store.LoadAccounts(ctx)
	if err != nil {
		return fmt.Errorf("Load: accounts: %w", err)
	}
	txs, err := b.store.LoadTransactions(ctx)
	if err != nil {
		return fmt.Errorf("Load: transactions: %w", err)
	}

	if err := checkReferences(users, accounts); err != nil {
		return fmt.Errorf("Load: %w", err)
	}

	// Dry-run both restores so a bad file leaves nothing half-restored.
	if err := NewUserDirectory(nil).Restore(users); err != nil {
		return fmt.Errorf("Load: %w", err)
	}
	if err := NewAccountLedger(nil, nil, nil).Restore(accounts); err != nil {
		return fmt.Errorf("Load: %w", err)
	}
	if err := b.Users.Restore(users); err != nil {
		return fmt.Errorf("Load: %w", err)
	}
	if err := b.Accounts.Restore(accounts); err != nil {
		return fmt.Errorf("Load: %w", err)
	}
	b.Transactions.Restore(txs)

	logging.FromContext(ctx).Info("bank state loaded",
		"users", len(users),
		"accounts", len(accounts),
		"transactions", len(txs),
	)
	return nil
}

// Save writes users, accounts and the transactions recorded since the last
// successful save as one unit.
func (b *Bank) Save(ctx context.Context) error {
	users := b.Users.Snapshot()
	accounts := b.Accounts.Snapshot()
	pending, mark := b.Transactions.Unsaved()

	err := b.store.Save(ctx, domain.State{
		Users:        users,
		Accounts:     accounts,
		Transactions: pending,
	})
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	b.Transactions.MarkSaved(mark)

	logging.FromContext(ctx).Info("bank state saved",
		"users", len(users),
		"accounts", len(accounts),
		"transactions", len(pending),
	)
	return nil
}

func checkReferences(users []domain.User, accounts []domain.Account) error {
	ids := make(map[int]struct{}, len(users))
	for _, u := range users {
		ids[u.ID] = struct{}{}
	}
	for _, a := range accounts {
		if _, ok := ids[a.UserID]; !ok {
			return fmt.Errorf("account %d: user %d: %w", a.Number, a.UserID, domain.ErrUnknownUser)
		}
	}

	numbers := make(map[int]struct{}, len(accounts))
	for _, a := range accounts {
		numbers[a.Number] = struct{}{}
	}
	for _, a := range accounts {
		for _, fav := range a.Favorites {
			if _, ok := numbers[fav]; !ok {
				return fmt.Errorf("account %d: favorite %d: %w", a.Number, fav, domain.ErrUnknownAccount)
			}
		}
	}
	return nil
}
