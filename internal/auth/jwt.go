// Package auth issues and validates the bearer tokens used by API clients.
// Browser sessions use the encrypted cookie (internal/session); the JWT path
// exists for programmatic callers that cannot hold cookies. The signing
// secret comes from configuration, injected once at construction, so tests
// never touch the process environment.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSecretRequired is returned when constructing an issuer without a secret.
var ErrSecretRequired = errors.New("auth: jwt secret is required")

// Claims represents the JWT claims structure
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer creates and validates signed bearer tokens.
type TokenIssuer struct {
	secret    []byte
	expiresIn time.Duration
}

// NewTokenIssuer creates a token issuer. A secret shorter than 32 bytes is
// accepted but weak; configuration validation warns about it upstream.
func NewTokenIssuer(secret string, expiresIn time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, ErrSecretRequired
	}
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), expiresIn: expiresIn}, nil
}

// Generate creates a signed token for an authenticated user
func (t *TokenIssuer) Generate(userID, email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "prism-server",
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate parses and validates a token string
func (t *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}

	return claims, nil
}
