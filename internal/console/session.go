package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mybank/banking-system/internal/auth"
	"github.com/mybank/banking-system/internal/domain"
	"github.com/mybank/banking-system/internal/logging"
)

var errSessionExpired = errors.New("session expired")

type session struct {
	token  string
	user   domain.User
	logger *slog.Logger

	// account is the customer's account number, zero for employees.
	account int
}

func (c *Console) startSession(ctx context.Context, user domain.User, account int) error {
	token, claims, err := auth.GenerateToken(user.ID, user.Username, c.secret, c.ttl)
	if err != nil {
		return fmt.Errorf("startSession: %w", err)
	}

	logger := logging.FromContext(ctx).With(
		"session_id", claims.SessionID,
		"user_id", user.ID,
	)
	c.sess = &session{token: token, user: user, logger: logger, account: account}

	logger.Info("session started", "expires_at", claims.ExpiresAt)
	return nil
}

func (c *Console) endSession() {
	if c.sess != nil {
		c.sess.logger.Info("session ended")
	}
	c.sess = nil
}

// authorize checks the session token before an action runs and returns a
// context carrying the session's claims and logger. An expired session, or
// one whose token names a different user, is ended.
func (c *Console) authorize(ctx context.Context) (context.Context, error) {
	claims, err := auth.ValidateToken(c.sess.token, c.secret)
	if err == nil && claims.UserID != c.sess.user.ID {
		err = fmt.Errorf("token user %d, session user %d", claims.UserID, c.sess.user.ID)
	}
	if err != nil {
		c.sess.logger.Info("session rejected", "error", err)
		c.endSession()
		return ctx, fmt.Errorf("authorize: %w", errSessionExpired)
	}

	ctx = auth.ContextWithClaims(ctx, claims)
	return logging.WithLogger(ctx, c.sess.logger), nil
}

// sessionUsername returns the username the authorized session's token was
// issued for.
func sessionUsername(ctx context.Context) (string, error) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return "", errSessionExpired
	}
	return claims.Username, nil
}
