package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/mybank/banking-system/internal/domain"
	"github.com/mybank/banking-system/internal/logging"
	"github.com/mybank/banking-system/internal/password"
)

// MaxLoginAttempts is the number of consecutive failed logins after which a
// user is locked out for good.
const MaxLoginAttempts = 3

const minPasswordLength = 6

// UserDirectory owns every user record. All methods are safe for concurrent
// use and return copies.
type UserDirectory struct {
	mu     sync.Mutex
	byName map[string]*domain.User
	byID   map[int]*domain.User
	lastID int
	hasher password.Hasher
}

func NewUserDirectory(hasher password.Hasher) *UserDirectory {
	return &UserDirectory{
		byName: make(map[string]*domain.User),
		byID:   make(map[int]*domain.User),
		hasher: hasher,
	}
}

// Restore replaces the directory contents with users. On error the current
// contents are left untouched.
func (d *UserDirectory) Restore(users []domain.User) error {
	byName := make(map[string]*domain.User, len(users))
	byID := make(map[int]*domain.User, len(users))
	lastID := 0
	for i := range users {
		u := users[i]
		if _, ok := byName[u.Username]; ok {
			return fmt.Errorf("Restore: duplicate username %q", u.Username)
		}
		if _, ok := byID[u.ID]; ok {
			return fmt.Errorf("Restore: duplicate user id %d", u.ID)
		}
		u.FailedLogins = 0
		byName[u.Username] = &u
		byID[u.ID] = &u
		lastID = max(lastID, u.ID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.byName, d.byID, d.lastID = byName, byID, lastID
	return nil
}

// Snapshot returns every user ordered by id.
func (d *UserDirectory) Snapshot() []domain.User {
	d.mu.Lock()
	defer d.mu.Unlock()

	users := make([]domain.User, 0, len(d.byID))
	for _, u := range d.byID {
		users = append(users, *u)
	}
	slices.SortFunc(users, func(a, b domain.User) int { return a.ID - b.ID })
	return users
}

func (d *UserDirectory) SignUp(ctx context.Context, username, plainPassword, firstName, lastName string) (*domain.User, error) {
	log := logging.FromContext(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byName[username]; ok {
		return nil, fmt.Errorf("SignUp: %w", domain.ErrUsernameTaken)
	}
	if err := ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("SignUp: %w", err)
	}
	if err := ValidatePassword(plainPassword); err != nil {
		return nil, fmt.Errorf("SignUp: %w", err)
	}
	if err := ValidateName(firstName, lastName); err != nil {
		return nil, fmt.Errorf("SignUp: %w", err)
	}

	hash, err := d.hasher.Hash(plainPassword)
	if err != nil {
		return nil, fmt.Errorf("SignUp: %w", err)
	}

	d.lastID++
	u := &domain.User{
		ID:           d.lastID,
		Username:     username,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Type:         domain.UserTypeCustomer,
		Active:       true,
	}
	d.byName[u.Username] = u
	d.byID[u.ID] = u

	log.Info("user signed up", "user_id", u.ID, "username", u.Username)

	out := *u
	return &out, nil
}

func (d *UserDirectory) Login(ctx context.Context, username, plainPassword string) (*domain.User, error) {
	log := logging.FromContext(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.byName[username]
	if !ok {
		return nil, fmt.Errorf("Login: %w", domain.ErrUnknownUser)
	}
	if !u.Active {
		return nil, fmt.Errorf("Login: %w", domain.ErrUserDeactivated)
	}
	if u.FailedLogins >= MaxLoginAttempts {
		return nil, fmt.Errorf("Login: %w", domain.ErrUserLocked)
	}

	if err := d.hasher.Verify(u.PasswordHash, plainPassword); err != nil {
		u.FailedLogins++
		log.Warn("login failed", "user_id", u.ID, "failed_attempts", u.FailedLogins)
		if u.FailedLogins == MaxLoginAttempts {
			log.Warn("user locked", "user_id", u.ID)
		}
		return nil, fmt.Errorf("Login: %w", domain.ErrLoginFailed)
	}

	u.FailedLogins = 0
	log.Info("user logged in", "user_id", u.ID)

	out := *u
	return &out, nil
}

// Logout only checks the user exists; the session itself belongs to the
// caller.
func (d *UserDirectory) Logout(ctx context.Context, username string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.byName[username]
	if !ok {
		return fmt.Errorf("Logout: %w", domain.ErrUnknownUser)
	}
	logging.FromContext(ctx).Info("user logged out", "user_id", u.ID)
	return nil
}

func (d *UserDirectory) ResetPassword(ctx context.Context, username, oldPassword, newPassword string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.byName[username]
	if !ok {
		return fmt.Errorf("ResetPassword: %w", domain.ErrUnknownUser)
	}
	if err := d.hasher.Verify(u.PasswordHash, oldPassword); err != nil {
		return fmt.Errorf("ResetPassword: %w", domain.ErrWrongPassword)
	}
	if err := ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("ResetPassword: %w", err)
	}

	hash, err := d.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("ResetPassword: %w", err)
	}
	u.PasswordHash = hash

	logging.FromContext(ctx).Info("password reset", "user_id", u.ID)
	return nil
}

// Deactivate is irreversible: no operation sets Active back to true.
func (d *UserDirectory) Deactivate(ctx context.Context, username string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.byName[username]
	if !ok {
		return fmt.Errorf("Deactivate: %w", domain.ErrUnknownUser)
	}
	u.Active = false

	logging.FromContext(ctx).Info("user deactivated", "user_id", u.ID)
	return nil
}

func (d *UserDirectory) ByID(_ context.Context, id int) (*domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.byID[id]
	if !ok {
		return nil, fmt.Errorf("ByID: %d: %w", id, domain.ErrUnknownUser)
	}
	out := *u
	return &out, nil
}

func (d *UserDirectory) ByUsername(_ context.Context, username string) (*domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.byName[username]
	if !ok {
		return nil, fmt.Errorf("ByUsername: %w", domain.ErrUnknownUser)
	}
	out := *u
	return &out, nil
}

func (d *UserDirectory) DisplayName(ctx context.Context, id int) (string, error) {
	u, err := d.ByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("DisplayName: %w", err)
	}
	return u.DisplayName(), nil
}

// IsTaken reports whether username is already registered.
func (d *UserDirectory) IsTaken(username string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.byName[username]
	return ok
}

func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return domain.ErrInvalidUsername
	}
	for _, r := range username {
		if unicode.IsUpper(r) {
			return domain.ErrInvalidUsername
		}
	}
	return nil
}

func ValidatePassword(p string) error {
	if utf8.RuneCountInString(p) < minPasswordLength {
		return domain.ErrInvalidPassword
	}
	var lower, upper, digit bool
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	if !lower || !upper || !digit {
		return domain.ErrInvalidPassword
	}
	return nil
}

func ValidateName(firstName, lastName string) error {
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return domain.ErrInvalidName
	}
	return nil
}
