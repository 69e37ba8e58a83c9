package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wellnest/backend/internal/interfaces/http/dto"
)

// BodyLimit caps request bodies at maxBytes. A declared Content-Length over
// the cap is refused up front; chunked bodies fail on read. Webhook routes
// read the raw body for signature checks and share the same cap.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.Fail(
				dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", c.GetString(RequestIDKey)))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
