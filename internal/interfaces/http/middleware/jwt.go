package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wellnest/backend/internal/infrastructure/auth"
	"github.com/wellnest/backend/internal/infrastructure/logger"
	"github.com/wellnest/backend/internal/interfaces/http/dto"
)

// Keys under which an authenticated request carries its identity.
const (
	ClaimsKey = "jwt_claims"
	UserIDKey = logger.UserIDGinKey
	RoleKey   = "jwt_role"
)

// StorefrontPublic are the routes anyone may call. A trailing * matches a
// prefix.
var StorefrontPublic = []string{
	"/health",
	"/ready",
	"/swagger/*",
	"/api/v1/products*",
	"/api/v1/auth/signup",
	"/api/v1/auth/login",
	"/api/v1/coupons/validate",
	"/api/v1/webhooks/razorpay",
	"/api/v1/webhooks/phonepe",
}

// Authenticator checks bearer tokens and, when it has a revocation store,
// turns away tokens that were logged out or predate a password change.
type Authenticator struct {
	tokens  *auth.JWTService
	revoked auth.Revocations
	log     *zap.Logger
	exact   map[string]bool
	prefix  []string
}

// NewAuthenticator builds an Authenticator that guards every path. revoked
// and log may be nil.
func NewAuthenticator(tokens *auth.JWTService, revoked auth.Revocations, log *zap.Logger) *Authenticator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{tokens: tokens, revoked: revoked, log: log, exact: map[string]bool{}}
}

// Public lets paths through Require without a token.
func (a *Authenticator) Public(paths ...string) *Authenticator {
	for _, p := range paths {
		if pre, ok := strings.CutSuffix(p, "*"); ok {
			a.prefix = append(a.prefix, pre)
		} else {
			a.exact[p] = true
		}
	}
	return a
}

func (a *Authenticator) isPublic(p string) bool {
	if a.exact[p] {
		return true
	}
	for _, pre := range a.prefix {
		if strings.HasPrefix(p, pre) {
			return true
		}
	}
	return false
}

// Require aborts with 401 unless the request is public or carries a valid,
// unrevoked token. Public requests still get the caller's identity when they
// send one.
func (a *Authenticator) Require() gin.HandlerFunc {
	optional := a.Optional()
	return func(c *gin.Context) {
		if a.isPublic(c.Request.URL.Path) {
			optional(c)
			return
		}
		claims, err := a.authenticate(c)
		if err != nil {
			a.reject(c, err)
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// Optional attaches the caller's identity when a valid token is sent and
// lets anonymous requests through.
func (a *Authenticator) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := a.authenticate(c); err == nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}

func (a *Authenticator) authenticate(c *gin.Context) (*auth.Claims, error) {
	raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return nil, auth.ErrInvalidToken
	}
	claims, err := a.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}
	if a.revoked == nil {
		return claims, nil
	}

	// a failing revocation store lets the token through rather than logging
	// every customer out
	ctx := c.Request.Context()
	if claims.ID != "" {
		gone, err := a.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			a.log.Error("Revocation lookup failed", zap.String("jti", claims.ID), zap.Error(err))
		} else if gone {
			return nil, auth.ErrTokenRevoked
		}
	}
	stale, err := a.revoked.RevokedBefore(ctx, claims.UserID, claims.Issued())
	if err != nil {
		a.log.Error("Session lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
	} else if stale {
		return nil, auth.ErrTokenRevoked
	}
	return claims, nil
}

func (a *Authenticator) reject(c *gin.Context, err error) {
	a.log.Warn("Request not authenticated", zap.Error(err), zap.String("path", c.Request.URL.Path))

	code, msg := dto.ErrCodeTokenInvalid, "Invalid token"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, msg = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		code, msg = dto.ErrCodeTokenRevoked, "Token has been revoked"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Fail(code, msg, c.GetString(RequestIDKey)))
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(ClaimsKey, claims)
	c.Set(UserIDKey, claims.UserID)
	c.Set(RoleKey, claims.Role)

	ctx := c.Request.Context()
	ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), claims.UserID)
	c.Request = c.Request.WithContext(ctx)
}

// CurrentClaims is nil for anonymous requests.
func CurrentClaims(c *gin.Context) *auth.Claims {
	claims, _ := c.Value(ClaimsKey).(*auth.Claims)
	return claims
}

func CurrentUserID(c *gin.Context) string { return c.GetString(UserIDKey) }

func CurrentRole(c *gin.Context) string { return c.GetString(RoleKey) }
