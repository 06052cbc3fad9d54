package domain

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeChecking AccountType = "CHECKING_ACCOUNT"
	AccountTypeSavings  AccountType = "SAVINGS_ACCOUNT"
)

var AccountTypes = []AccountType{AccountTypeChecking, AccountTypeSavings}

func (t AccountType) IsValid() bool {
	return t == AccountTypeChecking || t == AccountTypeSavings
}

func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("ParseAccountType: %q: %w", s, ErrInvalidAccountType)
	}
	return t, nil
}

const (
	// FirstAccountNumber is the floor the account number sequence starts above.
	FirstAccountNumber = 10000

	// MaxOverdrafts is how many penalised overdrafts a checking account may
	// take. The counter never decreases.
	MaxOverdrafts = 2
)

var OverdraftPenalty = decimal.NewFromInt(50)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

func ValidPin(pin string) bool {
	return pinPattern.MatchString(pin)
}

type Account struct {
	Number           int
	PinHash          string
	UserID           int
	Type             AccountType
	Plan             Plan
	Balance          decimal.Decimal
	WithdrawLimit    decimal.Decimal
	DepositLimit     decimal.Decimal
	Active           bool
	OverdraftCounter int
	Favorites        []int
}

// Clone returns a copy that shares no mutable state with a.
func (a Account) Clone() Account {
	a.Favorites = slices.Clone(a.Favorites)
	return a
}

func (a *Account) Deposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("Deposit: %w", ErrInvalidAmount)
	}
	if amount.GreaterThan(a.DepositLimit) {
		return fmt.Errorf("Deposit: %s over %s: %w", amount, a.DepositLimit, ErrDepositLimitExceeded)
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}

// Withdraw applies the variant's withdrawal policy. It is the only place the
// account type changes behaviour.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("Withdraw: %w", ErrInvalidAmount)
	}
	if amount.GreaterThan(a.WithdrawLimit) {
		return fmt.Errorf("Withdraw: %s over %s: %w", amount, a.WithdrawLimit, ErrWithdrawLimitExceeded)
	}

	var err error
	switch a.Type {
	case AccountTypeChecking:
		err = withdrawChecking(a, amount)
	case AccountTypeSavings:
		err = withdrawSavings(a, amount)
	default:
		err = fmt.Errorf("%q: %w", a.Type, ErrInvalidAccountType)
	}
	if err != nil {
		return fmt.Errorf("Withdraw: %w", err)
	}
	return nil
}

func withdrawSavings(a *Account, amount decimal.Decimal) error {
	if amount.GreaterThan(a.Balance) {
		return ErrInsufficientFunds
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

func withdrawChecking(a *Account, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(a.Balance) {
		a.Balance = a.Balance.Sub(amount)
		return nil
	}
	if a.OverdraftCounter >= MaxOverdrafts {
		return ErrOverdraftLimitExceeded
	}
	a.OverdraftCounter++
	a.Balance = a.Balance.Sub(amount.Add(OverdraftPenalty))
	return nil
}

func (a *Account) HasFavorite(number int) bool {
	return slices.Contains(a.Favorites, number)
}

// AddFavorite appends number unless it is already present.
func (a *Account) AddFavorite(number int) {
	if !a.HasFavorite(number) {
		a.Favorites = append(a.Favorites, number)
	}
}

func (a *Account) RemoveFavorite(number int) {
	a.Favorites = slices.DeleteFunc(a.Favorites, func(n int) bool { return n == number })
}
