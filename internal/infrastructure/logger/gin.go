package logger

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserIDGinKey is the gin context key the auth middleware stores the user id under
const UserIDGinKey = "jwt_user_id"

const (
	requestIDGinKey = "request_id"
	loggerGinKey    = "logger"
)

// GinMiddleware logs one line per request. 5xx responses log at error
// level and 4xx at warn
func GinMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqLogger := logger.With(
			zap.String("request_id", c.GetString(requestIDGinKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Set(loggerGinKey, reqLogger)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if userID := c.GetString(UserIDGinKey); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}
		if id := c.Param("id"); id != "" && strings.Contains(c.FullPath(), "/orders/") {
			fields = append(fields, zap.String("order_id", id))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			reqLogger.Error("HTTP Request", fields...)
		case status >= http.StatusBadRequest:
			reqLogger.Warn("HTTP Request", fields...)
		default:
			reqLogger.Info("HTTP Request", fields...)
		}
	}
}

// Recovery turns a handler panic into the standard 500 envelope
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID := c.GetString(requestIDGinKey)
				logger.Error("Panic recovered",
					zap.String("request_id", requestID),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("error", err),
					zap.Stack("stacktrace"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":       "INTERNAL_ERROR",
						"message":    "An unexpected error occurred",
						"request_id": requestID,
					},
				})
			}
		}()
		c.Next()
	}
}

// GetGinLogger returns the request-scoped logger set by GinMiddleware
func GetGinLogger(c *gin.Context) *zap.Logger {
	if l, ok := c.Value(loggerGinKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// RequestContext returns the request context carrying the request-scoped
// logger and ids, for handing to application services
func RequestContext(c *gin.Context) context.Context {
	ctx := WithContext(c.Request.Context(), GetGinLogger(c))
	if requestID := c.GetString(requestIDGinKey); requestID != "" {
		ctx = context.WithValue(ctx, RequestIDKey, requestID)
	}
	if userID := c.GetString(UserIDGinKey); userID != "" {
		ctx = context.WithValue(ctx, userIDKey, userID)
	}
	return ctx
}
