package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims identify a logged-in console session.
type Claims struct {
	SessionID uuid.UUID
	UserID    int
	Username  string
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

func GenerateToken(userID int, username string, secret string, expiry time.Duration) (string, *Claims, error) {
	now := time.Now()
	sessionID := uuid.New()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID.String(),
			Subject:   strconv.Itoa(userID),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Username: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", nil, fmt.Errorf("GenerateToken: %w", err)
	}
	return signed, &Claims{
		SessionID: sessionID,
		UserID:    userID,
		Username:  username,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func ValidateToken(tokenString string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: %w", err)
	}

	tc, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("ValidateToken: invalid token claims")
	}

	userID, err := strconv.Atoi(tc.Subject)
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: invalid subject in token: %w", err)
	}
	sessionID, err := uuid.Parse(tc.ID)
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: invalid session id in token: %w", err)
	}

	c := &Claims{
		SessionID: sessionID,
		UserID:    userID,
		Username:  tc.Username,
	}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	return c, nil
}

// RandomSecret returns a 32-byte hex secret for processes started without
// SESSION_SECRET; tokens then die with the process.
func RandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("RandomSecret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
