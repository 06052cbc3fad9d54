package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mybank/banking-system/internal/domain"
	"github.com/mybank/banking-system/internal/service"
	"github.com/mybank/banking-system/internal/testutil"
)

type StoreTestSuite struct {
	suite.Suite
	open  func(t *testing.T) *Store
	store *Store
}

func (s *StoreTestSuite) SetupTest() {
	s.store = s.open(s.T())
	require.NoError(s.T(), s.store.Migrate(context.Background()))
}

func openSQLite(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "bank.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, SQLite)
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &StoreTestSuite{open: openSQLite})
}

func TestPostgresStore(t *testing.T) {
	// The container is shared by every test in the suite.
	db := testutil.SetupTestDB(t)
	suite.Run(t, &StoreTestSuite{open: func(t *testing.T) *Store {
		s := New(db, Postgres)
		for _, table := range []string{"users", "accounts", "transactions"} {
			_, _ = db.Exec(`DROP TABLE IF EXISTS ` + table)
		}
		return s
	}})
}

func (s *StoreTestSuite) TestMigrate_Idempotent() {
	require.NoError(s.T(), s.store.Migrate(context.Background()))
}

func (s *StoreTestSuite) TestEmptyStore() {
	ctx := context.Background()

	users, err := s.store.LoadUsers(ctx)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), users)

	accounts, err := s.store.LoadAccounts(ctx)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), accounts)

	txs, err := s.store.LoadTransactions(ctx)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), txs)
}

func (s *StoreTestSuite) TestUsers_SaveReplaces() {
	t := s.T()
	ctx := context.Background()

	alice := testutil.NewUser(t, 1, "alice")
	bob := testutil.NewUser(t, 2, "bob")
	require.NoError(t, s.store.Save(ctx, domain.State{Users: []domain.User{alice, bob}}))

	bob.Active = false
	require.NoError(t, s.store.Save(ctx, domain.State{Users: []domain.User{bob}}))

	got, err := s.store.LoadUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.User{bob}, got)
	assert.Equal(t, 1, testutil.CountRows(t, s.store.Conn(), "users"))
}

func (s *StoreTestSuite) TestAccounts_RoundTrip() {
	t := s.T()
	ctx := context.Background()

	checking := testutil.NewAccount(t, 10001, 1, domain.AccountTypeChecking, domain.PlanNormal, 0)
	checking.Balance = decimal.RequireFromString("-150.75")
	checking.OverdraftCounter = 1
	checking.Favorites = []int{10002}
	savings := testutil.NewAccount(t, 10002, 2, domain.AccountTypeSavings, domain.PlanPlatinum, 2500)

	require.NoError(t, s.store.Save(ctx, domain.State{Accounts: []domain.Account{savings, checking}}))

	got, err := s.store.LoadAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	for i, want := range []domain.Account{checking, savings} {
		assert.Equal(t, want.Number, got[i].Number)
		assert.Equal(t, want.PinHash, got[i].PinHash)
		assert.Equal(t, want.UserID, got[i].UserID)
		assert.Equal(t, want.Type, got[i].Type)
		assert.Equal(t, want.Plan, got[i].Plan)
		assert.True(t, want.Balance.Equal(got[i].Balance), "balance: got %s, want %s", got[i].Balance, want.Balance)
		assert.True(t, want.WithdrawLimit.Equal(got[i].WithdrawLimit))
		assert.True(t, want.DepositLimit.Equal(got[i].DepositLimit))
		assert.Equal(t, want.Active, got[i].Active)
		assert.Equal(t, want.OverdraftCounter, got[i].OverdraftCounter)
		assert.Equal(t, want.Favorites, got[i].Favorites)
	}
}

func (s *StoreTestSuite) TestSave_TransactionsOrderAndRetry() {
	t := s.T()
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

	first := testutil.NewTransaction(10001, domain.EntryTypeCredit, 500, at)
	second := testutil.NewTransaction(10002, domain.EntryTypeCredit, 150, at)
	third := testutil.NewTransaction(10001, domain.EntryTypeDebit, 150, at)

	require.NoError(t, s.store.Save(ctx, domain.State{Transactions: []domain.Transaction{first, second}}))
	require.NoError(t, s.store.Save(ctx, domain.State{Transactions: []domain.Transaction{second, third}}))

	got, err := s.store.LoadTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 3, testutil.CountRows(t, s.store.Conn(), "transactions"))

	for i, want := range []domain.Transaction{first, second, third} {
		assert.Equal(t, want.ID, got[i].ID)
		assert.Equal(t, want.AccountNumber, got[i].AccountNumber)
		assert.Equal(t, want.Type, got[i].Type)
		assert.True(t, want.Amount.Equal(got[i].Amount))
		assert.True(t, want.Timestamp.Equal(got[i].Timestamp), "timestamp: got %s, want %s", got[i].Timestamp, want.Timestamp)
	}
}

func (s *StoreTestSuite) TestSave_FailureRollsBackEverything() {
	t := s.T()
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

	alice := testutil.NewUser(t, 1, "alice")
	checking := testutil.NewAccount(t, 10001, 1, domain.AccountTypeChecking, domain.PlanGold, 500)
	require.NoError(t, s.store.Save(ctx, domain.State{
		Users:    []domain.User{alice},
		Accounts: []domain.Account{checking},
	}))

	// Two accounts for one user violate the unique user_id constraint after
	// the users table has already been rewritten.
	bob := testutil.NewUser(t, 2, "bob")
	first := testutil.NewAccount(t, 10002, 2, domain.AccountTypeSavings, domain.PlanGold, 100)
	second := testutil.NewAccount(t, 10003, 2, domain.AccountTypeSavings, domain.PlanGold, 100)
	err := s.store.Save(ctx, domain.State{
		Users:        []domain.User{alice, bob},
		Accounts:     []domain.Account{checking, first, second},
		Transactions: []domain.Transaction{testutil.NewTransaction(10002, domain.EntryTypeCredit, 100, at)},
	})
	require.ErrorContains(t, err, "accounts")

	users, err := s.store.LoadUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.User{alice}, users)
	assert.Equal(t, 1, testutil.CountRows(t, s.store.Conn(), "accounts"))
	assert.Equal(t, 0, testutil.CountRows(t, s.store.Conn(), "transactions"))
}

func (s *StoreTestSuite) TestBank_SaveAndReload() {
	t := s.T()
	ctx := context.Background()

	bank := service.NewBank(s.store, testutil.Hasher(), nil)
	require.NoError(t, bank.Load(ctx))

	alice, err := bank.Users.SignUp(ctx, "alice", testutil.DefaultPassword, "Alice", "Smith")
	require.NoError(t, err)
	bob, err := bank.Users.SignUp(ctx, "bob", testutil.DefaultPassword, "Bob", "Jones")
	require.NoError(t, err)

	from, err := bank.Accounts.OpenAccount(ctx, service.OpenAccountRequest{
		UserID:         alice.ID,
		Pin:            testutil.DefaultPin,
		Type:           domain.AccountTypeChecking,
		Plan:           domain.PlanGold,
		InitialDeposit: decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	to, err := bank.Accounts.OpenAccount(ctx, service.OpenAccountRequest{
		UserID:         bob.ID,
		Pin:            testutil.DefaultPin,
		Type:           domain.AccountTypeSavings,
		Plan:           domain.PlanGold,
		InitialDeposit: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	_, err = bank.Accounts.Transfer(ctx, from.Number, to.Number, decimal.NewFromInt(150))
	require.NoError(t, err)
	require.NoError(t, bank.Accounts.AddFavorite(ctx, from.Number, to.Number))
	require.NoError(t, bank.Save(ctx))

	reloaded := service.NewBank(s.store, testutil.Hasher(), nil)
	require.NoError(t, reloaded.Load(ctx))

	gotFrom, err := reloaded.Accounts.Account(from.Number)
	require.NoError(t, err)
	assert.True(t, gotFrom.Balance.Equal(decimal.NewFromInt(350)), "sender: got %s", gotFrom.Balance)
	assert.Equal(t, []int{to.Number}, gotFrom.Favorites)

	gotTo, err := reloaded.Accounts.Account(to.Number)
	require.NoError(t, err)
	assert.True(t, gotTo.Balance.Equal(decimal.NewFromInt(1150)), "receiver: got %s", gotTo.Balance)

	assert.Equal(t, 4, reloaded.Transactions.Len())
	require.NoError(t, reloaded.Accounts.ValidatePin(ctx, from.Number, testutil.DefaultPin))
}

func TestRebind(t *testing.T) {
	pg := New(nil, Postgres)
	lite := New(nil, SQLite)

	q := `INSERT INTO t (a, b) VALUES (?, ?)`
	assert.Equal(t, `INSERT INTO t (a, b) VALUES ($1, $2)`, pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
}
