package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
	"github.com/whitehat88/recruitment-auth/internal/infra/config"
	"github.com/whitehat88/recruitment-auth/internal/usecase"
)

const (
	// SessionKey is the context key for the validated local session.
	SessionKey = "session"

	defaultCookieName = "recruit_session"
	loginPagePath     = "/login"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// RequireSession extracts the session token, revalidates it against the user
// directory and stores the reconciled session in the request context. A closed
// session clears the client cookie; an unavailable directory rejects the
// request but leaves the cookie alone so the client can retry.
func RequireSession(authService *usecase.AuthService, settings config.SessionSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := ExtractSessionToken(c, settings)
		if !ok {
			respondSessionEnded(c, "authentication required")
			return
		}

		meta := usecase.RequestMeta{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}

		result, err := authService.Validate(c.Request.Context(), token, meta)
		if err != nil {
			switch {
			case errors.Is(err, usecase.ErrSessionClosed):
				ClearSessionCookie(c, settings)
				respondSessionEnded(c, "session is no longer valid")
			case errors.Is(err, usecase.ErrSessionUnavailable):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "session could not be verified"))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
			}
			return
		}

		if result.Refreshed && result.Token != "" {
			SetSessionCookie(c, settings, result.Token, result.Session.ExpiresAt)
		}

		c.Set(SessionKey, result.Session)
		c.Set(UserIDKey, result.Session.UserID)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.UserID = strconv.FormatInt(result.Session.UserID, 10)
		}

		c.Next()
	}
}

// RequireRole lets the request through only when the session role is one of
// the allowed roles. It must run after RequireSession.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := GetSession(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		for _, role := range roles {
			if session.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden,
			newErrorResponse(c, "insufficient permissions"))
	}
}

// GetSession retrieves the session stored by RequireSession.
func GetSession(c *gin.Context) (domain.LocalSession, bool) {
	val, exists := c.Get(SessionKey)
	if !exists {
		return domain.LocalSession{}, false
	}

	session, ok := val.(domain.LocalSession)
	return session, ok
}

// SetSessionCookie writes the signed session token as an HTTP-only cookie that
// expires together with the session itself.
func SetSessionCookie(c *gin.Context, settings config.SessionSettings, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetCookie(sessionCookieName(settings), token, maxAge, "/", "", settings.CookieSecure, true)
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(c *gin.Context, settings config.SessionSettings) {
	c.SetCookie(sessionCookieName(settings), "", -1, "/", "", settings.CookieSecure, true)
}

// ExtractSessionToken prefers the session cookie and falls back to a bearer
// Authorization header for API clients.
func ExtractSessionToken(c *gin.Context, settings config.SessionSettings) (string, bool) {
	if cookie, err := c.Cookie(sessionCookieName(settings)); err == nil {
		if token := strings.TrimSpace(cookie); token != "" {
			return token, true
		}
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// respondSessionEnded answers an unauthenticated request. Browser clients are
// sent back to the login page; API clients get a 401 payload.
func respondSessionEnded(c *gin.Context, message string) {
	if strings.Contains(c.GetHeader("Accept"), "text/html") {
		c.Redirect(http.StatusSeeOther, loginPagePath)
		c.Abort()
		return
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, message))
}

func sessionCookieName(settings config.SessionSettings) string {
	if name := strings.TrimSpace(settings.CookieName); name != "" {
		return name
	}
	return defaultCookieName
}
