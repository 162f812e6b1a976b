package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid is returned for any token that fails verification:
// bad signature, expired, or signed for the other token kind.
var ErrTokenInvalid = errors.New("invalid or expired token")

// TokenService issues and verifies the two JWT kinds used by the API:
// short-lived access tokens and day-scale refresh tokens. Each kind is
// signed with its own secret, so a refresh token never verifies as an
// access token. Verification is stateless; refresh revocation is handled
// by comparing against the value stored on the user row.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssueAccess creates an access token binding the given user ID.
func (t *TokenService) IssueAccess(userID string) (string, error) {
	return sign(userID, t.accessSecret, t.accessTTL)
}

// IssueRefresh creates a refresh token binding the given user ID.
func (t *TokenService) IssueRefresh(userID string) (string, error) {
	return sign(userID, t.refreshSecret, t.refreshTTL)
}

// ParseAccess verifies an access token and returns the bound user ID.
func (t *TokenService) ParseAccess(tokenStr string) (string, error) {
	return parse(tokenStr, t.accessSecret)
}

// ParseRefresh verifies a refresh token and returns the bound user ID.
func (t *TokenService) ParseRefresh(tokenStr string) (string, error) {
	return parse(tokenStr, t.refreshSecret)
}

func sign(userID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parse(tokenStr string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrTokenInvalid
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrTokenInvalid
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrTokenInvalid
	}
	return sub, nil
}
