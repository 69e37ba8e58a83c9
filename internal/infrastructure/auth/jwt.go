// Package auth issues and checks the HS256 access tokens customers and staff
// authenticate with, and tracks revoked tokens.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wellnest/backend/internal/infrastructure/config"
)

const defaultTokenLifetime = 24 * time.Hour

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenRevoked     = errors.New("token has been revoked")
	// ErrIncompleteSubject means a token was requested or presented without
	// a user id or role.
	ErrIncompleteSubject = errors.New("token subject needs a user id and a role")
)

// Claims are the registered claims plus who the token was issued to.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// AccessToken is what login and signup return to the client.
type AccessToken struct {
	Token     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenType string    `json:"token_type"`
}

// Subject identifies the account a token is issued to.
type Subject struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

type JWTService struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
	now      func() time.Time
}

// NewJWTService signs with cfg.Secret. Tokens live for a day unless cfg sets
// another lifetime.
func NewJWTService(cfg config.JWTConfig) *JWTService {
	lifetime := cfg.AccessTokenExpiration
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}
	return &JWTService{secret: []byte(cfg.Secret), lifetime: lifetime, issuer: cfg.Issuer, now: time.Now}
}

// Lifetime is how long a freshly issued token stays valid.
func (s *JWTService) Lifetime() time.Duration { return s.lifetime }

// Issue signs a token for sub. Every token gets its own id so logout can
// revoke it alone.
func (s *JWTService) Issue(sub Subject) (*AccessToken, error) {
	if sub.UserID == uuid.Nil || sub.Role == "" {
		return nil, ErrIncompleteSubject
	}
	now := s.now()
	exp := now.Add(s.lifetime)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   sub.UserID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID: sub.UserID.String(),
		Email:  sub.Email,
		Role:   sub.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &AccessToken{Token: signed, ExpiresAt: exp, TokenType: "Bearer"}, nil
}

// Validate checks signature, issuer and lifetime. Only HS256 is accepted.
func (s *JWTService) Validate(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	case claims.UserID == "" || claims.Role == "":
		return nil, ErrIncompleteSubject
	}
	return claims, nil
}

// Issued is the token's iat, or the zero time when it has none.
func (c *Claims) Issued() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// RemainingTTL is how long the token stays valid from now. It is what a
// revocation entry must outlive.
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(time.Until(c.ExpiresAt.Time), 0)
}
