package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/mybank/banking-system/internal/domain"
)

const accountColumns = `account_number, pin_hash, user_id, account_type, account_plan,
	balance, withdraw_limit, deposit_limit, is_active, overdraft_counter, favorites`

func (s *Store) LoadAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY account_number`)
	if err != nil {
		return nil, fmt.Errorf("LoadAccounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("LoadAccounts: scan: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LoadAccounts: rows: %w", err)
	}
	return accounts, nil
}

// replaceAccounts replaces the accounts table with accounts inside tx.
func (s *Store) replaceAccounts(ctx context.Context, tx *sql.Tx, accounts []domain.Account) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range accounts {
		_, err := stmt.ExecContext(ctx,
			a.Number, a.PinHash, a.UserID, string(a.Type), string(a.Plan),
			a.Balance, a.WithdrawLimit, a.DepositLimit,
			a.Active, a.OverdraftCounter, formatFavorites(a.Favorites),
		)
		if err != nil {
			return fmt.Errorf("account %d: %w", a.Number, err)
		}
	}
	return nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	var accountType, plan, favorites string
	err := s.Scan(
		&a.Number, &a.PinHash, &a.UserID, &accountType, &plan,
		&a.Balance, &a.WithdrawLimit, &a.DepositLimit,
		&a.Active, &a.OverdraftCounter, &favorites,
	)
	if err != nil {
		return nil, err
	}

	if a.Type, err = domain.ParseAccountType(accountType); err != nil {
		return nil, err
	}
	if a.Plan, err = domain.ParsePlan(plan); err != nil {
		return nil, err
	}
	if a.Favorites, err = parseFavorites(favorites); err != nil {
		return nil, fmt.Errorf("account %d: favorites: %w", a.Number, err)
	}
	return &a, nil
}

func parseFavorites(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ";")
	favs := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
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
	return strings.Join(parts, ";")
}
