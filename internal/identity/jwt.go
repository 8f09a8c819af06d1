package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/leafsync/internal/common"
	"github.com/dmitrijs2005/leafsync/internal/logging"
	"github.com/dmitrijs2005/leafsync/internal/storage"
	"github.com/golang-jwt/jwt/v5"
)

// tokenKey is the local-storage key holding the access token.
const tokenKey = "auth-token"

// Claims includes the registered claims plus the custom UserID field.
type Claims struct {
	jwt.RegisteredClaims
	UserID string
}

// TokenProvider implements Provider over an HS256 access token kept in
// durable local storage.
type TokenProvider struct {
	storage   storage.Storage
	secretKey []byte
	logger    logging.Logger
}

func NewTokenProvider(st storage.Storage, secretKey []byte, logger logging.Logger) *TokenProvider {
	return &TokenProvider{
		storage:   st,
		secretKey: secretKey,
		logger:    logger.With("component", "identity"),
	}
}

// Current reads the stored token and extracts the user id from its claims.
// Absent, expired or malformed tokens yield ("", false).
func (p *TokenProvider) Current(ctx context.Context) (string, bool) {
	data, err := p.storage.Get(ctx, tokenKey)
	if err != nil {
		p.logger.Warn(ctx, "failed to read stored token", "error", err)
		return "", false
	}
	if data == nil {
		return "", false
	}

	userID, err := userIDFromToken(string(data), p.secretKey)
	if err != nil {
		p.logger.Warn(ctx, "stored token is not usable", "error", err)
		return "", false
	}

	return userID, true
}

// SetToken validates and stores an access token. Invalid tokens are rejected
// so a bad login cannot shadow a working one.
func (p *TokenProvider) SetToken(ctx context.Context, token string) error {
	if _, err := userIDFromToken(token, p.secretKey); err != nil {
		return err
	}
	if err := p.storage.Set(ctx, tokenKey, []byte(token)); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// ClearToken removes the stored token (logout).
func (p *TokenProvider) ClearToken(ctx context.Context) error {
	return p.storage.Delete(ctx, tokenKey)
}

// GenerateToken creates a signed HS256 token for userID. Used by tests and
// by tooling that provisions client credentials.
func GenerateToken(userID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func userIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.UserID, nil
}
