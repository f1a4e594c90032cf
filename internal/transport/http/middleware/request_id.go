package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/whitehat88/recruitment-auth/internal/infra/logger"
)

const (
	requestIDHeader = "X-Request-ID"
	// RequestIDKey is the gin context key for the correlation identifier.
	RequestIDKey = "request_id"
)

// RequestID assigns each request a correlation identifier, honoring one the
// client already sent. The identifier lands in the response header, the gin
// context, and the request context so logger.WithContext picks it up.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}

		c.Writer.Header().Set(requestIDHeader, reqID)
		c.Set(RequestIDKey, reqID)
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), logger.RequestIDKey{}, reqID))

		c.Next()
	}
}
