package csvstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mybank/banking-system/internal/domain"
)

// favoritesSeparator joins favorite account numbers inside one cell.
const favoritesSeparator = ";"

var accountHeader = []string{
	"accountNumber", "pin", "userId", "type", "plan", "balance",
	"withdrawLimit", "depositLimit", "isActive", "overdraftCounter", "favoriteAccounts",
}

func (s *Store) LoadAccounts(ctx context.Context) ([]domain.Account, error) {
	t, err := readTable(ctx, s.path(AccountsFile))
	if err != nil {
		return nil, fmt.Errorf("LoadAccounts: %w", err)
	}

	accounts := make([]domain.Account, 0, len(t.rows))
	for i, row := range t.rows {
		a, err := parseAccount(t, row)
		if err != nil {
			return nil, fmt.Errorf("LoadAccounts: row %d: %w", i+2, err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, nil
}

func parseAccount(t *table, row []string) (*domain.Account, error) {
	f := make(map[string]string, len(accountHeader))
	for _, col := range accountHeader[:len(accountHeader)-1] {
		v, err := t.value(row, col)
		if err != nil {
			return nil, err
		}
		f[col] = v
	}

	var a domain.Account
	var err error
	if a.Number, err = strconv.Atoi(f["accountNumber"]); err != nil {
		return nil, fmt.Errorf("accountNumber: %w", err)
	}
	if a.UserID, err = strconv.Atoi(f["userId"]); err != nil {
		return nil, fmt.Errorf("userId: %w", err)
	}
	if a.Type, err = domain.ParseAccountType(f["type"]); err != nil {
		return nil, err
	}
	if a.Plan, err = domain.ParsePlan(f["plan"]); err != nil {
		return nil, err
	}
	if a.Balance, err = decimal.NewFromString(f["balance"]); err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	if a.WithdrawLimit, err = decimal.NewFromString(f["withdrawLimit"]); err != nil {
		return nil, fmt.Errorf("withdrawLimit: %w", err)
	}
	if a.DepositLimit, err = decimal.NewFromString(f["depositLimit"]); err != nil {
		return nil, fmt.Errorf("depositLimit: %w", err)
	}
	if a.Active, err = strconv.ParseBool(f["isActive"]); err != nil {
		return nil, fmt.Errorf("isActive: %w", err)
	}
	if a.OverdraftCounter, err = strconv.Atoi(f["overdraftCounter"]); err != nil {
		return nil, fmt.Errorf("overdraftCounter: %w", err)
	}
	if a.Favorites, err = parseFavorites(t.optional(row, "favoriteAccounts")); err != nil {
		return nil, fmt.Errorf("favoriteAccounts: %w", err)
	}
	a.PinHash = f["pin"]
	return &a, nil
}

func parseFavorites(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, favoritesSeparator)
	favs := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		favs = append(favs, n)
	}
	return favs, nil
}

func formatFavorites(favs []int) string {
	parts := make([]string, len(favs))
	for i, n := range favs {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, favoritesSeparator)
}

func accountRows(accounts []domain.Account) [][]string {
	rows := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, []string{
			strconv.Itoa(a.Number),
			a.PinHash,
			strconv.Itoa(a.UserID),
			string(a.Type),
			string(a.Plan),
			a.Balance.String(),
			a.WithdrawLimit.String(),
			a.DepositLimit.String(),
			strconv.FormatBool(a.Active),
			strconv.Itoa(a.OverdraftCounter),
			formatFavorites(a.Favorites),
		})
	}
	return rows
}
