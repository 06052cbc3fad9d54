package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mybank/banking-system/internal/domain"
	"github.com/mybank/banking-system/internal/password"
)

// Plaintext credentials behind NewUser and NewAccount.
const (
	DefaultPassword = "Secret1"
	DefaultPin      = "1234"
)

var ErrStoreDown = errors.New("store unavailable")

// Hasher is a bcrypt hasher at the minimum cost, fast enough for tests.
func Hasher() password.Hasher {
	return password.Bcrypt{Cost: bcrypt.MinCost}
}

func NewUser(t *testing.T, id int, username string) domain.User {
	t.Helper()

	hash, err := Hasher().Hash(DefaultPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return domain.User{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     username,
		Type:         domain.UserTypeCustomer,
		Active:       true,
	}
}

// NewAccount builds an active account on plan with the plan's limits. For
// PlanNormal the withdraw limit is the plan ceiling.
func NewAccount(t *testing.T, number, userID int, accountType domain.AccountType, plan domain.Plan, balance int64) domain.Account {
	t.Helper()

	pin, err := Hasher().Hash(DefaultPin)
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	withdraw, err := domain.WithdrawLimit(plan)
	if err != nil {
		t.Fatalf("withdraw limit: %v", err)
	}
	deposit, err := domain.DepositLimit(plan)
	if err != nil {
		t.Fatalf("deposit limit: %v", err)
	}
	return domain.Account{
		Number:        number,
		PinHash:       pin,
		UserID:        userID,
		Type:          accountType,
		Plan:          plan,
		Balance:       decimal.NewFromInt(balance),
		WithdrawLimit: withdraw,
		DepositLimit:  deposit,
		Active:        true,
	}
}

func NewTransaction(number int, entryType domain.EntryType, amount int64, at time.Time) domain.Transaction {
	return domain.Transaction{
		ID:            uuid.New(),
		AccountNumber: number,
		Timestamp:     at,
		Type:          entryType,
		Amount:        decimal.NewFromInt(amount),
	}
}

// MemStore keeps bank state in memory. Setting Fail makes every call return
// ErrStoreDown.
type MemStore struct {
	mu           sync.Mutex
	Users        []domain.User
	Accounts     []domain.Account
	Transactions []domain.Transaction
	Fail         bool
}

func (m *MemStore) LoadUsers(context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return nil, ErrStoreDown
	}
	return append([]domain.User(nil), m.Users...), nil
}

func (m *MemStore) LoadAccounts(context.Context) ([]domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return nil, ErrStoreDown
	}
	out := make([]domain.Account, len(m.Accounts))
	for i, a := range m.Accounts {
		out[i] = a.Clone()
	}
	return out, nil
}

func (m *MemStore) LoadTransactions(context.Context) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return nil, ErrStoreDown
	}
	return append([]domain.Transaction(nil), m.Transactions...), nil
}

// Save replaces users and accounts and appends txs in one step.
func (m *MemStore) Save(_ context.Context, st domain.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrStoreDown
	}
	m.Users = append([]domain.User(nil), st.Users...)
	m.Accounts = make([]domain.Account, len(st.Accounts))
	for i, a := range st.Accounts {
		m.Accounts[i] = a.Clone()
	}
	m.Transactions = append(m.Transactions, st.Transactions...)
	return nil
}
