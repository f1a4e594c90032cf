package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
	"github.com/whitehat88/recruitment-auth/internal/infra/config"
	"github.com/whitehat88/recruitment-auth/internal/transport/http/middleware"
	"github.com/whitehat88/recruitment-auth/internal/usecase"
)

// AuthHandler exposes session authentication endpoints.
type AuthHandler struct {
	auth     *usecase.AuthService
	settings config.SessionSettings
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, settings config.SessionSettings) *AuthHandler {
	return &AuthHandler{auth: auth, settings: settings}
}

// RegisterRoutes binds authentication routes. sessionGuard protects routes
// that need a live session; loginMiddlewares run ahead of the login handler.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, sessionGuard gin.HandlerFunc, loginMiddlewares ...gin.HandlerFunc) {
	if len(loginMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
		chain = append(chain, h.login)
		r.POST("/login", chain...)
	} else {
		r.POST("/login", h.login)
	}

	r.POST("/logout", h.logout)

	if sessionGuard != nil {
		r.GET("/me", sessionGuard, h.me)
		r.GET("/sessions", sessionGuard, h.sessions)
	}
}

// login authenticates credentials and establishes the session cookie. The
// same token is returned in the body for API clients that prefer the bearer
// header.
func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	input := usecase.LoginInput{
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		IP:        strings.TrimSpace(c.ClientIP()),
		UserAgent: strings.TrimSpace(c.Request.UserAgent()),
	}

	result, err := h.auth.Login(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
			{Err: usecase.ErrAccountDisabled, Status: http.StatusForbidden, Message: "account disabled"},
		}, http.StatusInternalServerError, "authentication failed")
		return
	}

	middleware.SetSessionCookie(c, h.settings, result.Token, result.Session.ExpiresAt)

	c.JSON(http.StatusOK, LoginResponse{
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresIn: sessionLifetimeSeconds(result.Session),
		Session:   newSessionView(result.Session),
	})
}

// logout closes the server-side record and expires the cookie. It never
// fails: an expired or unreadable token still ends the client session.
func (h *AuthHandler) logout(c *gin.Context) {
	if token, ok := middleware.ExtractSessionToken(c, h.settings); ok {
		h.auth.Logout(c.Request.Context(), token)
	}

	middleware.ClearSessionCookie(c, h.settings)
	c.Status(http.StatusNoContent)
}

// me returns the reconciled identity of the current session.
func (h *AuthHandler) me(c *gin.Context) {
	session, ok := middleware.GetSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	c.JSON(http.StatusOK, newSessionView(session))
}

// sessions lists the caller's open login records.
func (h *AuthHandler) sessions(c *gin.Context) {
	session, ok := middleware.GetSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	records, err := h.auth.ListSessions(c.Request.Context(), session.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list sessions"))
		return
	}

	views := make([]SessionRecordView, 0, len(records))
	for _, record := range records {
		views = append(views, newSessionRecordView(record))
	}

	c.JSON(http.StatusOK, SessionListResponse{Sessions: views, Total: len(views)})
}

func sessionLifetimeSeconds(session domain.LocalSession) int {
	seconds := int(session.ExpiresAt.Sub(session.IssuedAt).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}
