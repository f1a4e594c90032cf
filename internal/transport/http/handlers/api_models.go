package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
	"github.com/whitehat88/recruitment-auth/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request trace ID.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SessionView is the client-facing projection of an authenticated session.
type SessionView struct {
	UserID      int64     `json:"user_id"`
	AccountID   int64     `json:"account_id,omitempty"`
	Role        string    `json:"role"`
	DisplayName string    `json:"display_name,omitempty"`
	Email       string    `json:"email"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	Token     string      `json:"token"`
	TokenType string      `json:"token_type"`
	ExpiresIn int         `json:"expires_in"`
	Session   SessionView `json:"session"`
}

// SessionRecordView is one row of the caller's login history.
type SessionRecordView struct {
	ID           int64      `json:"id"`
	LoginTime    time.Time  `json:"login_time"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
	IP           *string    `json:"ip,omitempty"`
	UserAgent    *string    `json:"user_agent,omitempty"`
	Active       bool       `json:"active"`
}

// SessionListResponse wraps the caller's active session records.
type SessionListResponse struct {
	Sessions []SessionRecordView `json:"sessions"`
	Total    int                 `json:"total"`
}

// PasswordResetRequest starts the reset flow for an account email.
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetResponse acknowledges a reset request. The payload is
// identical whether or not the email has an account; ExpiresAt and DevToken
// only appear in development mode.
type PasswordResetResponse struct {
	Message   string     `json:"message"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	DevToken  *string    `json:"dev_token,omitempty"` // Development only
}

// PasswordResetConfirmRequest completes the reset flow.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// PasswordResetConfirmResponse is returned after a successful reset.
type PasswordResetConfirmResponse struct {
	Message        string    `json:"message"`
	ChangedAt      time.Time `json:"changed_at"`
	ClosedSessions int       `json:"closed_sessions"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func newSessionView(session domain.LocalSession) SessionView {
	return SessionView{
		UserID:      session.UserID,
		AccountID:   session.AccountID,
		Role:        string(session.Role),
		DisplayName: session.DisplayName,
		Email:       session.Email,
		IssuedAt:    session.IssuedAt,
		ExpiresAt:   session.ExpiresAt,
	}
}

func newSessionRecordView(record domain.SessionRecord) SessionRecordView {
	return SessionRecordView{
		ID:           record.ID,
		LoginTime:    record.LoginTime,
		LastActivity: record.LastActivity,
		IP:           record.IP,
		UserAgent:    record.UserAgent,
		Active:       record.Active,
	}
}
