// Package auth implements the engine's single service-token Bearer
// check, grounded in koshedutech-binance-trading-app/internal/auth's
// JWTManager/Middleware shape but simplified: this engine has no user
// accounts, sessions, or tiers, only one shared JWT secret
// (config.ServerConfig.JWTSecret) that every caller presents as a
// Bearer token.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("auth: invalid or malformed token")
	ErrTokenExpired = errors.New("auth: token has expired")
)

// Claims identifies the calling service rather than an end user - the
// engine's API has one trust boundary (the shared secret), not a user
// database.
type Claims struct {
	Service string `json:"service"`
	jwt.RegisteredClaims
}

// Issuer signs and validates service tokens against one shared secret.
type Issuer struct {
	secret []byte
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret)}
}

// IssueToken mints a token identifying the caller as service, valid for
// ttl. Used by an operator to provision a long-lived credential for an
// internal caller; the engine itself never calls this at request time.
func (i *Issuer) IssueToken(service string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Service: service,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   service,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "futures-scenario-engine",
		},
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies tokenString, rejecting anything not
// signed with HMAC under the shared secret.
func (i *Issuer) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
