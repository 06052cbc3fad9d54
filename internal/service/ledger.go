package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mybank/banking-system/internal/domain"
	"github.com/mybank/banking-system/internal/logging"
	"github.com/mybank/banking-system/internal/password"
)

type userLookup interface {
	ByID(ctx context.Context, id int) (*domain.User, error)
	DisplayName(ctx context.Context, id int) (string, error)
}

type transactionRecorder interface {
	Record(ctx context.Context, accountNumber int, entryType domain.EntryType, amount decimal.Decimal) domain.Transaction
}

type accountEntry struct {
	mu   sync.Mutex
	acct domain.Account
}

// AccountLedger owns every account record and enforces plan limits,
// overdraft policy, favorites and transfers. Balance changes on one account
// are serialised by that account's lock; the registry lock only guards the
// set of accounts.
type AccountLedger struct {
	mu         sync.RWMutex
	accounts   map[int]*accountEntry
	byUser     map[int]int
	lastNumber int

	users  userLookup
	txlog  transactionRecorder
	hasher password.Hasher
}

func NewAccountLedger(users userLookup, txlog transactionRecorder, hasher password.Hasher) *AccountLedger {
	return &AccountLedger{
		accounts:   make(map[int]*accountEntry),
		byUser:     make(map[int]int),
		lastNumber: domain.FirstAccountNumber,
		users:      users,
		txlog:      txlog,
		hasher:     hasher,
	}
}

type OpenAccountRequest struct {
	UserID         int
	Pin            string
	Type           domain.AccountType
	Plan           domain.Plan
	WithdrawLimit  decimal.Decimal
	InitialDeposit decimal.Decimal
}

func (l *AccountLedger) OpenAccount(ctx context.Context, req OpenAccountRequest) (*domain.Account, error) {
	log := logging.FromContext(ctx)

	if !domain.ValidPin(req.Pin) {
		return nil, fmt.Errorf("OpenAccount: %w", domain.ErrInvalidPin)
	}
	if !req.Type.IsValid() {
		return nil, fmt.Errorf("OpenAccount: %q: %w", req.Type, domain.ErrInvalidAccountType)
	}

	withdrawLimit, err := l.resolveWithdrawLimit(req.Plan, req.WithdrawLimit)
	if err != nil {
		return nil, fmt.Errorf("OpenAccount: %w", err)
	}
	if err := ValidateDepositLimit(req.InitialDeposit, req.Plan); err != nil {
		return nil, fmt.Errorf("OpenAccount: initial deposit: %w", err)
	}
	depositLimit, err := domain.DepositLimit(req.Plan)
	if err != nil {
		return nil, fmt.Errorf("OpenAccount: %w", err)
	}

	if _, err := l.users.ByID(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("OpenAccount: %w", err)
	}

	pinHash, err := l.hasher.Hash(req.Pin)
	if err != nil {
		return nil, fmt.Errorf("OpenAccount: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byUser[req.UserID]; ok {
		return nil, fmt.Errorf("OpenAccount: %w", domain.ErrAccountExists)
	}

	l.lastNumber++
	entry := &accountEntry{acct: domain.Account{
		Number:        l.lastNumber,
		PinHash:       pinHash,
		UserID:        req.UserID,
		Type:          req.Type,
		Plan:          req.Plan,
		Balance:       req.InitialDeposit,
		WithdrawLimit: withdrawLimit,
		DepositLimit:  depositLimit,
		Active:        true,
	}}
	l.accounts[entry.acct.Number] = entry
	l.byUser[req.UserID] = entry.acct.Number

	l.txlog.Record(ctx, entry.acct.Number, domain.EntryTypeCredit, req.InitialDeposit)

	log.Info("account opened",
		"account_number", entry.acct.Number,
		"user_id", req.UserID,
		"type", req.Type,
		"plan", req.Plan,
	)

	out := entry.acct.Clone()
	return &out, nil
}

func (l *AccountLedger) resolveWithdrawLimit(plan domain.Plan, requested decimal.Decimal) (decimal.Decimal, error) {
	if plan == domain.PlanNormal {
		if err := ValidateWithdrawLimit(plan, requested); err != nil {
			return decimal.Zero, err
		}
		return requested, nil
	}
	return domain.WithdrawLimit(plan)
}

func (l *AccountLedger) Deposit(ctx context.Context, accountNumber int, amount decimal.Decimal) (*domain.Account, error) {
	acct, err := l.mutate(ctx, accountNumber, domain.EntryTypeCredit, amount, func(a *domain.Account) error {
		return a.Deposit(amount)
	})
	if err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}
	return acct, nil
}

// Withdraw debits amount under the account type's policy. The recorded debit
// is the requested amount; an overdraft penalty only shows in the balance.
func (l *AccountLedger) Withdraw(ctx context.Context, accountNumber int, amount decimal.Decimal) (*domain.Account, error) {
	acct, err := l.mutate(ctx, accountNumber, domain.EntryTypeDebit, amount, func(a *domain.Account) error {
		return a.Withdraw(amount)
	})
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}
	return acct, nil
}

// mutate applies fn to a copy of the account and, only when fn succeeds,
// commits the copy and records the transaction under the account lock.
func (l *AccountLedger) mutate(ctx context.Context, accountNumber int, entryType domain.EntryType, amount decimal.Decimal, fn func(*domain.Account) error) (*domain.Account, error) {
	entry, err := l.entry(accountNumber)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.acct.Active {
		return nil, domain.ErrAccountDeactivated
	}

	next := entry.acct.Clone()
	if err := fn(&next); err != nil {
		return nil, err
	}
	overdrawn := next.OverdraftCounter != entry.acct.OverdraftCounter
	entry.acct = next
	l.txlog.Record(ctx, accountNumber, entryType, amount)

	if overdrawn {
		logging.FromContext(ctx).Warn("account overdrawn",
			"account_number", accountNumber,
			"overdraft_counter", next.OverdraftCounter,
			"balance", next.Balance,
		)
	}

	out := next.Clone()
	return &out, nil
}

type Transfer struct {
	From   int
	To     int
	Amount decimal.Decimal
	Debit  domain.Transaction
	Credit domain.Transaction
}

// Transfer moves amount between two accounts as one unit: either both legs
// and both transactions happen or neither does.
func (l *AccountLedger) Transfer(ctx context.Context, from, to int, amount decimal.Decimal) (*Transfer, error) {
	log := logging.FromContext(ctx)

	sender, err := l.entry(from)
	if err != nil {
		return nil, fmt.Errorf("Transfer: sender: %w", err)
	}
	receiver, err := l.entry(to)
	if err != nil {
		return nil, fmt.Errorf("Transfer: receiver: %w", err)
	}
	if from == to {
		return nil, fmt.Errorf("Transfer: %w", domain.ErrSelfTransfer)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("Transfer: %w", domain.ErrInvalidAmount)
	}

	unlock := lockInOrder(map[int]*accountEntry{from: sender, to: receiver})
	defer unlock()

	if !sender.acct.Active {
		return nil, fmt.Errorf("Transfer: sender: %w", domain.ErrAccountDeactivated)
	}
	if !receiver.acct.Active {
		return nil, fmt.Errorf("Transfer: receiver: %w", domain.ErrAccountDeactivated)
	}
	if amount.GreaterThan(receiver.acct.DepositLimit) {
		return nil, fmt.Errorf("Transfer: receiver: %w", domain.ErrDepositLimitExceeded)
	}

	nextSender := sender.acct.Clone()
	if err := nextSender.Withdraw(amount); err != nil {
		return nil, fmt.Errorf("Transfer: sender: %w", err)
	}
	nextReceiver := receiver.acct.Clone()
	if err := nextReceiver.Deposit(amount); err != nil {
		return nil, fmt.Errorf("Transfer: receiver: %w", err)
	}

	sender.acct = nextSender
	receiver.acct = nextReceiver

	t := &Transfer{
		From:   from,
		To:     to,
		Amount: amount,
		Debit:  l.txlog.Record(ctx, from, domain.EntryTypeDebit, amount),
		Credit: l.txlog.Record(ctx, to, domain.EntryTypeCredit, amount),
	}

	log.Info("transfer completed",
		"from_account", from,
		"to_account", to,
		"amount", amount,
	)
	return t, nil
}

// lockInOrder locks entries in ascending account-number order so two
// transfers over the same pair can never deadlock.
func lockInOrder(entries map[int]*accountEntry) (unlock func()) {
	numbers := make([]int, 0, len(entries))
	for n := range entries {
		numbers = append(numbers, n)
	}
	slices.Sort(numbers)

	for _, n := range numbers {
		entries[n].mu.Lock()
	}
	return func() {
		for i := len(numbers) - 1; i >= 0; i-- {
			entries[numbers[i]].mu.Unlock()
		}
	}
}

func (l *AccountLedger) AddFavorite(ctx context.Context, owner, favorite int) error {
	if err := l.editFavorites(owner, favorite, func(a *domain.Account) { a.AddFavorite(favorite) }); err != nil {
		return fmt.Errorf("AddFavorite: %w", err)
	}
	logging.FromContext(ctx).Info("favorite added", "account_number", owner, "favorite", favorite)
	return nil
}

func (l *AccountLedger) RemoveFavorite(ctx context.Context, owner, favorite int) error {
	if err := l.editFavorites(owner, favorite, func(a *domain.Account) { a.RemoveFavorite(favorite) }); err != nil {
		return fmt.Errorf("RemoveFavorite: %w", err)
	}
	logging.FromContext(ctx).Info("favorite removed", "account_number", owner, "favorite", favorite)
	return nil
}

func (l *AccountLedger) editFavorites(owner, favorite int, edit func(*domain.Account)) error {
	entry, err := l.entry(owner)
	if err != nil {
		return err
	}
	if _, err := l.entry(favorite); err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	edit(&entry.acct)
	return nil
}

// Favorites resolves the owner's favorites to accounts in the order they were
// added.
func (l *AccountLedger) Favorites(_ context.Context, owner int) ([]domain.Account, error) {
	acct, err := l.Account(owner)
	if err != nil {
		return nil, fmt.Errorf("Favorites: %w", err)
	}

	favorites := make([]domain.Account, 0, len(acct.Favorites))
	for _, n := range acct.Favorites {
		fav, err := l.Account(n)
		if err != nil {
			return nil, fmt.Errorf("Favorites: %w", err)
		}
		favorites = append(favorites, *fav)
	}
	return favorites, nil
}

// Deactivate is irreversible: no operation sets Active back to true.
func (l *AccountLedger) Deactivate(ctx context.Context, accountNumber int) error {
	entry, err := l.entry(accountNumber)
	if err != nil {
		return fmt.Errorf("Deactivate: %w", err)
	}

	entry.mu.Lock()
	entry.acct.Active = false
	entry.mu.Unlock()

	logging.FromContext(ctx).Info("account deactivated", "account_number", accountNumber)
	return nil
}

func (l *AccountLedger) ValidatePin(_ context.Context, accountNumber int, pin string) error {
	acct, err := l.Account(accountNumber)
	if err != nil {
		return fmt.Errorf("ValidatePin: %w", err)
	}
	if err := l.hasher.Verify(acct.PinHash, pin); err != nil {
		return fmt.Errorf("ValidatePin: %w", domain.ErrPinMismatch)
	}
	return nil
}

func (l *AccountLedger) Account(accountNumber int) (*domain.Account, error) {
	entry, err := l.entry(accountNumber)
	if err != nil {
		return nil, fmt.Errorf("Account: %w", err)
	}

	entry.mu.Lock()
	out := entry.acct.Clone()
	entry.mu.Unlock()
	return &out, nil
}

func (l *AccountLedger) AccountForUser(userID int) (*domain.Account, error) {
	l.mu.RLock()
	number, ok := l.byUser[userID]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("AccountForUser: user %d: %w", userID, domain.ErrUnknownAccount)
	}
	return l.Account(number)
}

// HolderName returns the display name of the account's owner, used to
// confirm a recipient before money moves.
func (l *AccountLedger) HolderName(ctx context.Context, accountNumber int) (string, error) {
	acct, err := l.Account(accountNumber)
	if err != nil {
		return "", fmt.Errorf("HolderName: %w", err)
	}
	name, err := l.users.DisplayName(ctx, acct.UserID)
	if err != nil {
		return "", fmt.Errorf("HolderName: %w", err)
	}
	return name, nil
}

func (l *AccountLedger) WithdrawLimit(plan domain.Plan) (decimal.Decimal, error) {
	return domain.WithdrawLimit(plan)
}

func (l *AccountLedger) DepositLimit(plan domain.Plan) (decimal.Decimal, error) {
	return domain.DepositLimit(plan)
}

func (l *AccountLedger) entry(accountNumber int) (*accountEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.accounts[accountNumber]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", accountNumber, domain.ErrUnknownAccount)
	}
	return entry, nil
}

// Restore replaces the ledger contents with accounts. On error the current
// contents are left untouched.
func (l *AccountLedger) Restore(accounts []domain.Account) error {
	byNumber := make(map[int]*accountEntry, len(accounts))
	byUser := make(map[int]int, len(accounts))
	lastNumber := domain.FirstAccountNumber
	for _, a := range accounts {
		if _, ok := byNumber[a.Number]; ok {
			return fmt.Errorf("Restore: duplicate account number %d", a.Number)
		}
		if !a.Type.IsValid() {
			return fmt.Errorf("Restore: account %d: %w", a.Number, domain.ErrInvalidAccountType)
		}
		if !a.Plan.IsValid() {
			return fmt.Errorf("Restore: account %d: %w", a.Number, domain.ErrInvalidPlan)
		}
		if other, ok := byUser[a.UserID]; ok {
			return fmt.Errorf("Restore: user %d owns accounts %d and %d: %w", a.UserID, other, a.Number, domain.ErrAccountExists)
		}
		byNumber[a.Number] = &accountEntry{acct: a.Clone()}
		byUser[a.UserID] = a.Number
		lastNumber = max(lastNumber, a.Number)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts, l.byUser, l.lastNumber = byNumber, byUser, lastNumber
	return nil
}

// Snapshot returns every account ordered by account number.
func (l *AccountLedger) Snapshot() []domain.Account {
	l.mu.RLock()
	entries := make([]*accountEntry, 0, len(l.accounts))
	for _, e := range l.accounts {
		entries = append(entries, e)
	}
	l.mu.RUnlock()

	accounts := make([]domain.Account, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		accounts = append(accounts, e.acct.Clone())
		e.mu.Unlock()
	}
	slices.SortFunc(accounts, func(a, b domain.Account) int { return a.Number - b.Number })
	return accounts
}

// ValidateWithdrawLimit checks a customer-chosen withdraw limit. Only the
// Normal plan lets the customer choose; other plans always pass.
func ValidateWithdrawLimit(plan domain.Plan, limit decimal.Decimal) error {
	ceiling, err := domain.WithdrawLimit(plan)
	if err != nil {
		return err
	}
	if plan != domain.PlanNormal {
		return nil
	}
	if !limit.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if limit.GreaterThan(ceiling) {
		return fmt.Errorf("limit %s over %s: %w", limit, ceiling, domain.ErrWithdrawLimitExceeded)
	}
	return nil
}

// ValidateDepositLimit checks a deposit amount against the plan's cap.
func ValidateDepositLimit(amount decimal.Decimal, plan domain.Plan) error {
	limit, err := domain.DepositLimit(plan)
	if err != nil {
		return err
	}
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if amount.GreaterThan(limit) {
		return fmt.Errorf("amount %s over %s: %w", amount, limit, domain.ErrDepositLimitExceeded)
	}
	return nil
}
