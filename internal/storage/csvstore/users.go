package csvstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mybank/banking-system/internal/domain"
)

var userHeader = []string{"id", "username", "password", "firstName", "lastName", "type", "isActive"}

func (s *Store) LoadUsers(ctx context.Context) ([]domain.User, error) {
	t, err := readTable(ctx, s.path(UsersFile))
	if err != nil {
		return nil, fmt.Errorf("LoadUsers: %w", err)
	}

	users := make([]domain.User, 0, len(t.rows))
	for i, row := range t.rows {
		u, err := parseUser(t, row)
		if err != nil {
			return nil, fmt.Errorf("LoadUsers: row %d: %w", i+2, err)
		}
		users = append(users, *u)
	}
	return users, nil
}

func parseUser(t *table, row []string) (*domain.User, error) {
	var u domain.User
	var err error
	fields := make(map[string]string, len(userHeader))
	for _, col := range userHeader {
		if fields[col], err = t.value(row, col); err != nil {
			return nil, err
		}
	}

	if u.ID, err = strconv.Atoi(fields["id"]); err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	if u.Active, err = strconv.ParseBool(fields["isActive"]); err != nil {
		return nil, fmt.Errorf("isActive: %w", err)
	}
	u.Type = domain.UserType(fields["type"])
	if !u.Type.IsValid() {
		return nil, fmt.Errorf("type: unknown user type %q", fields["type"])
	}
	u.Username = fields["username"]
	u.PasswordHash = fields["password"]
	u.FirstName = fields["firstName"]
	u.LastName = fields["lastName"]
	return &u, nil
}


func userRows(users []domain.User) [][]string {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			strconv.Itoa(u.ID),
			u.Username,
			u.PasswordHash,
			u.FirstName,
			u.LastName,
			string(u.Type),
			strconv.FormatBool(u.Active),
		})
	}
	return rows
}
