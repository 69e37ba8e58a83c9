package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wellnest/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// RoleAdmin is the role back-office staff tokens carry
const RoleAdmin = "admin"

// RequireRole rejects callers whose token does not carry one of roles.
// It must run after the JWT middleware
func RequireRole(log *zap.Logger, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.Fail(dto.ErrCodeUnauthorized, "Authentication required", c.GetString(RequestIDKey)))
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		if log != nil {
			log.Warn("Role check failed",
				zap.String("user_id", claims.UserID),
				zap.String("role", claims.Role),
				zap.Strings("required_any", roles),
				zap.String("path", c.Request.URL.Path))
		}
		c.AbortWithStatusJSON(http.StatusForbidden,
			dto.Fail(dto.ErrCodeForbidden, "You do not have access to this resource", c.GetString(RequestIDKey)))
	}
}

// RequireAdmin guards the back-office routes
func RequireAdmin(log *zap.Logger) gin.HandlerFunc {
	return RequireRole(log, RoleAdmin)
}
