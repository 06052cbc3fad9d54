package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mybank/banking-system/internal/domain"
	"github.com/mybank/banking-system/internal/service"
	"github.com/mybank/banking-system/internal/testutil"
)

const (
	aliceAccount = 10001
	bobAccount   = 10002
)

type fixture struct {
	console *Console
	bank    *service.Bank
	out     *bytes.Buffer
}

// seededStore holds alice (checking, 500) and bob (savings, 1000), both on
// the Gold plan.
func seededStore(t *testing.T) *testutil.MemStore {
	t.Helper()
	return &testutil.MemStore{
		Users: []domain.User{
			testutil.NewUser(t, 1, "alice"),
			testutil.NewUser(t, 2, "bob"),
		},
		Accounts: []domain.Account{
			testutil.NewAccount(t, aliceAccount, 1, domain.AccountTypeChecking, domain.PlanGold, 500),
			testutil.NewAccount(t, bobAccount, 2, domain.AccountTypeSavings, domain.PlanGold, 1000),
		},
	}
}

func newFixture(t *testing.T, store *testutil.MemStore, ttl time.Duration, lines ...string) *fixture {
	t.Helper()

	bank := service.NewBank(store, testutil.Hasher(), nil)
	require.NoError(t, bank.Load(context.Background()))

	out := new(bytes.Buffer)
	c := New(Options{
		Bank:          bank,
		In:            strings.NewReader(strings.Join(lines, "\n") + "\n"),
		Out:           out,
		SessionSecret: "test-secret",
		SessionTTL:    ttl,
	})
	return &fixture{console: c, bank: bank, out: out}
}

func (f *fixture) run(t *testing.T) string {
	t.Helper()
	require.NoError(t, f.console.Run(context.Background()))
	return f.out.String()
}

func (f *fixture) balance(t *testing.T, number int) decimal.Decimal {
	t.Helper()
	acct, err := f.bank.Accounts.Account(number)
	require.NoError(t, err)
	return acct.Balance
}

func login(username string) []string {
	return []string{"2", username, testutil.DefaultPassword}
}

func script(parts ...[]string) []string {
	var lines []string
	for _, p := range parts {
		lines = append(lines, p...)
	}
	return lines
}

func TestSignUp_CreatesUserAndAccountThenLogsIn(t *testing.T) {
	f := newFixture(t, &testutil.MemStore{}, time.Minute,
		"1",
		"Alice", "alice",
		"secret", testutil.DefaultPassword,
		"Alice", "Smith",
		"2", "1",
		"500", "150",
		"250",
		"12a4", "1234",
		"y",
		"1", "1234",
		"9",
		"3",
	)

	out := f.run(t)

	assert.Contains(t, out, "Usernames must be lowercase")
	assert.Contains(t, out, "Passwords need at least 6 characters")
	assert.Contains(t, out, "The amount is over the withdraw limit.")
	assert.Contains(t, out, "The PIN must be exactly 4 digits.")
	assert.Contains(t, out, "Your account 10001 was created.")
	assert.Contains(t, out, "Welcome, Alice Smith!")
	assert.Contains(t, out, "Your current balance: 250.00 USD")
	assert.Contains(t, out, "You have been logged out.")
	assert.Contains(t, out, "Goodbye!")

	acct, err := f.bank.Accounts.AccountForUser(1)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountTypeSavings, acct.Type)
	assert.Equal(t, domain.PlanNormal, acct.Plan)
	assert.True(t, acct.WithdrawLimit.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, 1, f.bank.Transactions.Len())
}

func TestSignUp_CancelLeavesNothingBehind(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{name: "at username", lines: []string{"1", "back", "3"}},
		{name: "at plan", lines: []string{"1", "alice", testutil.DefaultPassword, "Alice", "Smith", "1", "back", "3"}},
		{name: "declined confirmation", lines: []string{"1", "alice", testutil.DefaultPassword, "Alice", "Smith", "1", "2", "100", "1234", "n", "3"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, &testutil.MemStore{}, time.Minute, tc.lines...)
			out := f.run(t)

			assert.Contains(t, out, "Goodbye!")
			assert.Empty(t, f.bank.Users.Snapshot())
			assert.Empty(t, f.bank.Accounts.Snapshot())
		})
	}
}

func TestLogin_LocksAfterThreeFailures(t *testing.T) {
	f := newFixture(t, seededStore(t), time.Minute,
		"2", "alice", "Wrong1",
		"2", "alice", "Wrong2",
		"2", "alice", "Wrong3",
		"2", "alice", testutil.DefaultPassword,
		"3",
	)

	out := f.run(t)

	assert.Equal(t, 3, strings.Count(out, "Wrong username or password."))
	assert.Contains(t, out, "Too many failed login attempts.")
	assert.NotContains(t, out, "Welcome, ")
}

func TestCustomerActions(t *testing.T) {
	tests := []struct {
		name        string
		lines       []string
		wantOut     []string
		wantAlice   string
		wantBob     string
		wantEntries int
	}{
		{
			name:      "show balance",
			lines:     script(login("alice"), []string{"1", "1234", "9", "3"}),
			wantOut:   []string{"Your current balance: 500.00 USD"},
			wantAlice: "500",
			wantBob:   "1000",
		},
		{
			name:      "wrong pin",
			lines:     script(login("alice"), []string{"1", "0000", "9", "3"}),
			wantOut:   []string{"Incorrect PIN."},
			wantAlice: "500",
			wantBob:   "1000",
		},
		{
			name:        "deposit",
			lines:       script(login("alice"), []string{"2", "1234", "abc", "250.50", "9", "3"}),
			wantOut:     []string{"Please enter a number.", "Your new balance is 750.50 USD."},
			wantAlice:   "750.50",
			wantBob:     "1000",
			wantEntries: 1,
		},
		{
			name:      "deposit over limit",
			lines:     script(login("alice"), []string{"2", "1234", "20000", "9", "3"}),
			wantOut:   []string{"The amount is over the deposit limit."},
			wantAlice: "500",
			wantBob:   "1000",
		},
		{
			name:        "checking overdraft",
			lines:       script(login("alice"), []string{"3", "1234", "600", "9", "3"}),
			wantOut:     []string{"Your new balance is -150.00 USD."},
			wantAlice:   "-150",
			wantBob:     "1000",
			wantEntries: 1,
		},
		{
			name:        "transfer confirmed",
			lines:       script(login("alice"), []string{"4", "1234", "10002", "150", "y", "9", "3"}),
			wantOut:     []string{"You have no favorite accounts yet.", "Transfer 150.00 USD to Test bob?", "Transfer completed successfully."},
			wantAlice:   "350",
			wantBob:     "1150",
			wantEntries: 2,
		},
		{
			name:      "transfer declined",
			lines:     script(login("alice"), []string{"4", "1234", "10002", "150", "n", "9", "3"}),
			wantOut:   []string{"Transfer cancelled."},
			wantAlice: "500",
			wantBob:   "1000",
		},
		{
			name:      "transfer cancelled at amount",
			lines:     script(login("alice"), []string{"4", "1234", "10002", "back", "9", "3"}),
			wantAlice: "500",
			wantBob:   "1000",
		},
		{
			name:      "transfer to self",
			lines:     script(login("alice"), []string{"4", "1234", "10001", "10", "y", "9", "3"}),
			wantOut:   []string{"You cannot transfer to your own account."},
			wantAlice: "500",
			wantBob:   "1000",
		},
		{
			name:      "transfer to unknown account",
			lines:     script(login("alice"), []string{"4", "1234", "99999", "10", "9", "3"}),
			wantOut:   []string{"Account not found."},
			wantAlice: "500",
			wantBob:   "1000",
		},
		{
			name:      "invalid menu choice",
			lines:     script(login("alice"), []string{"42", "9", "3"}),
			wantOut:   []string{"Please select an option (1-9)."},
			wantAlice: "500",
			wantBob:   "1000",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, seededStore(t), time.Minute, tc.lines...)
			out := f.run(t)

			for _, want := range tc.wantOut {
				assert.Contains(t, out, want)
			}
			assert.True(t, f.balance(t, aliceAccount).Equal(decimal.RequireFromString(tc.wantAlice)),
				"alice: got %s", f.balance(t, aliceAccount))
			assert.True(t, f.balance(t, bobAccount).Equal(decimal.RequireFromString(tc.wantBob)),
				"bob: got %s", f.balance(t, bobAccount))
			assert.Equal(t, tc.wantEntries, f.bank.Transactions.Len())
		})
	}
}

func TestTransfer_ToFavoriteSkipsConfirmation(t *testing.T) {
	store := seededStore(t)
	store.Accounts[0].Favorites = []int{bobAccount}
	f := newFixture(t, store, time.Minute,
		script(login("alice"), []string{"4", "1234", "10002", "150", "9", "3"})...,
	)

	out := f.run(t)

	assert.Contains(t, out, "10002: Test bob")
	assert.NotContains(t, out, "Transfer 150.00 USD to")
	assert.True(t, f.balance(t, aliceAccount).Equal(decimal.NewFromInt(350)))
	assert.True(t, f.balance(t, bobAccount).Equal(decimal.NewFromInt(1150)))
}

func TestFavorites_AddAndRemove(t *testing.T) {
	f := newFixture(t, seededStore(t), time.Minute,
		script(login("alice"), []string{
			"5", "1234", "2", "10002", "y",
			"5", "1234", "1",
			"5", "1234", "3", "10002", "y",
			"9", "3",
		})...,
	)

	out := f.run(t)

	assert.Contains(t, out, "Test bob was added to your favorites.")
	assert.Contains(t, out, "10002: Test bob")
	assert.Contains(t, out, "Test bob was removed from your favorites.")

	acct, err := f.bank.Accounts.Account(aliceAccount)
	require.NoError(t, err)
	assert.Empty(t, acct.Favorites)
}

func TestHistory(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)
	store := seededStore(t)
	store.Transactions = []domain.Transaction{
		testutil.NewTransaction(aliceAccount, domain.EntryTypeCredit, 500, at),
		testutil.NewTransaction(bobAccount, domain.EntryTypeCredit, 1000, at),
		testutil.NewTransaction(aliceAccount, domain.EntryTypeDebit, 20, at.AddDate(0, 1, 0)),
	}

	tests := []struct {
		name    string
		lines   []string
		want    []string
		notWant []string
	}{
		{
			name:    "all",
			lines:   []string{"6", "1234", "1"},
			want:    []string{"01-06-2024 10:00:00 CREDIT 500.00 USD", "01-07-2024 10:00:00 DEBIT  20.00 USD"},
			notWant: []string{"1000.00"},
		},
		{
			name:    "range",
			lines:   []string{"6", "1234", "2", "01-06-2024", "02-06-2024"},
			want:    []string{"Transactions from 01-06-2024 until 02-06-2024:", "CREDIT 500.00 USD"},
			notWant: []string{"DEBIT"},
		},
		{
			name:  "future date",
			lines: []string{"6", "1234", "2", "01-06-2024", "01-01-2999"},
			want:  []string{"Dates cannot be in the future"},
		},
		{
			name:  "end before start",
			lines: []string{"6", "1234", "2", "02-06-2024", "01-06-2024"},
			want:  []string{"the end date cannot come before the start date"},
		},
		{
			name:  "bad date",
			lines: []string{"6", "1234", "2", "2024-06-01", "back"},
			want:  []string{"Please enter a date as dd-MM-yyyy."},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, store, time.Minute, script(login("alice"), tc.lines, []string{"9", "3"})...)
			out := f.run(t)

			for _, want := range tc.want {
				assert.Contains(t, out, want)
			}
			for _, notWant := range tc.notWant {
				assert.NotContains(t, out, notWant)
			}
		})
	}
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t, seededStore(t), time.Minute,
		script(login("alice"), []string{
			"7", "1234", "Nope12", "NewPass9",
			"7", "1234", testutil.DefaultPassword, "NewPass9",
			"9",
			"2", "alice", "NewPass9",
			"9", "3",
		})...,
	)

	out := f.run(t)

	assert.Contains(t, out, "Your old password is incorrect.")
	assert.Contains(t, out, "Your password was changed.")
	assert.Equal(t, 2, strings.Count(out, "Welcome, Test alice!"))
}

func TestDeactivate_LogsOutAndBlocksLogin(t *testing.T) {
	f := newFixture(t, seededStore(t), time.Minute,
		script(login("alice"), []string{"8", "1234", "y"}, login("alice"), []string{"3"})...,
	)

	out := f.run(t)

	assert.Contains(t, out, "Your account was deactivated. Goodbye!")
	assert.Contains(t, out, "This user has been deactivated.")

	acct, err := f.bank.Accounts.Account(aliceAccount)
	require.NoError(t, err)
	assert.False(t, acct.Active)
}

func TestSession_ExpiredTokenLogsOut(t *testing.T) {
	f := newFixture(t, seededStore(t), -time.Minute,
		script(login("alice"), []string{"1", "3"})...,
	)

	out := f.run(t)

	assert.Contains(t, out, "Welcome, Test alice!")
	assert.Contains(t, out, "Your session has expired. Please log in again.")
	assert.NotContains(t, out, "Your current balance")
	assert.Nil(t, f.console.sess)
}

func TestEmployeeMenu(t *testing.T) {
	store := seededStore(t)
	carol := testutil.NewUser(t, 3, "carol")
	carol.Type = domain.UserTypeEmployee
	store.Users = append(store.Users, carol)

	f := newFixture(t, store, time.Minute, script(login("carol"), []string{"2"})...)
	out := f.run(t)

	assert.Contains(t, out, "Employee menu")
	assert.NotContains(t, out, "Customer menu")
	assert.Contains(t, out, "Goodbye!")
}

func TestRun_EndOfInputExits(t *testing.T) {
	f := newFixture(t, seededStore(t), time.Minute, "2", "alice")
	out := f.run(t)
	assert.Contains(t, out, "Goodbye!")
}

func TestPerform_RecoversPanics(t *testing.T) {
	f := newFixture(t, seededStore(t), time.Minute)

	err := f.console.perform(context.Background(), "boom", func(context.Context) error {
		panic("boom")
	})

	require.NoError(t, err)
	assert.Contains(t, f.out.String(), msgUnexpected)
}

func TestMessageFor(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrInsufficientFunds, "Insufficient funds."},
		{domain.ErrOverdraftLimitExceeded, "Overdraft limit reached. No further overdrafts are allowed."},
		{domain.ErrAccountDeactivated, "This account has been deactivated."},
		{errSessionExpired, "Your session has expired. Please log in again."},
		{assert.AnError, ""},
	}

	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.want, messageFor(tc.err))
		})
	}
}

func TestLogin_CustomerWithoutAccountOpensOne(t *testing.T) {
	tests := []struct {
		name         string
		lines        []string
		wantOut      string
		wantAccounts int
	}{
		{
			name:         "opens account",
			lines:        script(login("carol"), []string{"2", "2", "100", "1234", "y", "9", "3"}),
			wantOut:      "Welcome, Test carol!",
			wantAccounts: 3,
		},
		{
			name:         "declines",
			lines:        script(login("carol"), []string{"2", "2", "100", "1234", "n", "3"}),
			wantOut:      "You need an account to log in.",
			wantAccounts: 2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := seededStore(t)
			store.Users = append(store.Users, testutil.NewUser(t, 3, "carol"))
			f := newFixture(t, store, time.Minute, tc.lines...)

			out := f.run(t)

			assert.Contains(t, out, "You do not have an account yet.")
			assert.Contains(t, out, tc.wantOut)
			assert.Len(t, f.bank.Accounts.Snapshot(), tc.wantAccounts)
		})
	}
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name     string
		tamper   func(*session)
		wantErr  error
		wantUser string
	}{
		{name: "valid session", tamper: func(*session) {}, wantUser: "alice"},
		{name: "token for another user", tamper: func(s *session) { s.user.ID = 2 }, wantErr: errSessionExpired},
		{name: "garbage token", tamper: func(s *session) { s.token = "not-a-token" }, wantErr: errSessionExpired},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, seededStore(t), time.Minute)
			ctx := context.Background()
			alice, err := f.bank.Users.ByUsername(ctx, "alice")
			require.NoError(t, err)
			require.NoError(t, f.console.startSession(ctx, *alice, aliceAccount))
			tc.tamper(f.console.sess)

			ctx, err = f.console.authorize(ctx)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, f.console.sess)
				return
			}
			require.NoError(t, err)
			username, err := sessionUsername(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.wantUser, username)
		})
	}
}
