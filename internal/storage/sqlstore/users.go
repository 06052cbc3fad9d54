package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mybank/banking-system/internal/domain"
)

const userColumns = `id, username, password_hash, first_name, last_name, user_type, is_active`

func (s *Store) LoadUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("LoadUsers: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("LoadUsers: scan: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LoadUsers: rows: %w", err)
	}
	return users, nil
}

// replaceUsers replaces the users table with users inside tx.
func (s *Store) replaceUsers(ctx context.Context, tx *sql.Tx, users []domain.User) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range users {
		_, err := stmt.ExecContext(ctx,
			u.ID, u.Username, u.PasswordHash, u.FirstName, u.LastName,
			string(u.Type), u.Active,
		)
		if err != nil {
			return fmt.Errorf("user %d: %w", u.ID, err)
		}
	}
	return nil
}

func scanUser(s scanner) (*domain.User, error) {
	var u domain.User
	var userType string
	err := s.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName,
		&userType, &u.Active,
	)
	if err != nil {
		return nil, err
	}
	u.Type = domain.UserType(userType)
	if !u.Type.IsValid() {
		return nil, fmt.Errorf("user %d: unknown user type %q", u.ID, userType)
	}
	return &u, nil
}
