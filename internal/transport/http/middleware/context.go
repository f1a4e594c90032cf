package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// TraceIDHeader carries the trace identifier between client and server.
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the gin context key for the trace identifier.
	TraceIDKey = "trace_id"
	// UserIDKey is the gin context key for the authenticated user ID.
	UserIDKey = "user_id"

	requestContextKey = "request_context"
)

// RequestContext carries per-request client metadata. The session layer
// stores the IP and user agent on the session record for audit, and the
// session guard fills in UserID once the session is reconciled.
type RequestContext struct {
	TraceID   string
	UserID    string
	IP        string
	UserAgent string
}

// EnrichContext assigns each request a trace ID, honoring one supplied by the
// caller, and captures client metadata for downstream consumers.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Set(requestContextKey, &RequestContext{
			TraceID:   traceID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})

		c.Next()
	}
}

// GetTraceID returns the trace ID assigned by EnrichContext, or "".
func GetTraceID(c *gin.Context) string {
	if traceID, exists := c.Get(TraceIDKey); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}
	return ""
}

// GetRequestContext returns the request metadata captured by EnrichContext.
// The result is never nil.
func GetRequestContext(c *gin.Context) *RequestContext {
	if ctx, exists := c.Get(requestContextKey); exists {
		if reqCtx, ok := ctx.(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{}
}
