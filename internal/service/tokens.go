package service

import (
	"fmt"
	"time"

	"github.com/boddenberg/household-hub-bfa/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// HubClaims are the claims the dashboard auth service puts in its tokens.
// Either Sub or Username names the user.
type HubClaims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// TokenService validates HS256 bearer tokens. Issuing is only used for local
// development tokens.
type TokenService struct {
	secret []byte
	issuer string
}

// NewTokenService creates a token service for the shared secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret), issuer: "household-hub"}
}

// Validate parses token and returns the user it names.
func (s *TokenService) Validate(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &HubClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := parsed.Claims.(*HubClaims)
	if !ok || !parsed.Valid {
		return "", &domain.ErrUnauthorized{Message: "invalid token"}
	}

	user := claims.Subject
	if user == "" {
		user = claims.Username
	}
	if user == "" {
		return "", &domain.ErrUnauthorized{Message: "token names no user"}
	}
	return user, nil
}

// Issue signs a token for user valid for ttl.
func (s *TokenService) Issue(user string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := HubClaims{
		Username: user,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    s.issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
