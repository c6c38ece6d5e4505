package util

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session token has expired")
)

// Principal kinds carried in a session.
const (
	KindUser     = "user"
	KindEmployee = "employee"
)

// SessionClaims identifies the caller behind a session cookie.
type SessionClaims struct {
	UserID uint   `json:"uid"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

// GenerateSessionToken signs a session for the principal. The returned claims carry the token ID
// used for revocation.
func GenerateSessionToken(userID uint, name, email, kind, secret string, expiry time.Duration) (string, *SessionClaims, error) {
	now := time.Now()
	claims := &SessionClaims{
		UserID: userID,
		Name:   name,
		Email:  email,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ValidateSessionToken parses and verifies a session token.
func ValidateSessionToken(tokenString, secret string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || (claims.Kind != KindUser && claims.Kind != KindEmployee) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
