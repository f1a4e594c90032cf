package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/whitehat88/recruitment-auth/internal/infra/security"
	"github.com/whitehat88/recruitment-auth/internal/usecase"
)

const resetAcceptedMessage = "If the account exists, reset instructions have been sent"

// PasswordHandler exposes the password reset endpoints.
type PasswordHandler struct {
	reset      *usecase.PasswordResetService
	dispatcher NotificationDispatcher
	isDev      bool
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(reset *usecase.PasswordResetService, dispatcher NotificationDispatcher, isDev bool) *PasswordHandler {
	if dispatcher == nil {
		dispatcher = noopDispatcher{}
	}
	return &PasswordHandler{
		reset:      reset,
		dispatcher: dispatcher,
		isDev:      isDev,
	}
}

// RegisterRoutes binds reset routes. resetMiddlewares run ahead of both
// endpoints: initiation and confirmation share one quota, since the confirm
// endpoint is the token guessing surface.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup, resetMiddlewares ...gin.HandlerFunc) {
	if len(resetMiddlewares) == 0 {
		r.POST("/reset/request", h.requestReset)
		r.POST("/reset/confirm", h.confirmReset)
		return
	}

	request := append([]gin.HandlerFunc{}, resetMiddlewares...)
	request = append(request, h.requestReset)
	r.POST("/reset/request", request...)

	confirm := append([]gin.HandlerFunc{}, resetMiddlewares...)
	confirm = append(confirm, h.confirmReset)
	r.POST("/reset/confirm", confirm...)
}

// requestReset starts the reset flow. The response is 202 with an identical
// body whether or not the email has an account, so callers cannot probe the
// user directory.
func (h *PasswordHandler) requestReset(c *gin.Context) {
	if h.reset == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "password reset unavailable"))
		return
	}

	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password reset payload"))
		return
	}

	input := usecase.PasswordResetRequestInput{
		Email: strings.TrimSpace(req.Email),
		IP:    strings.TrimSpace(c.ClientIP()),
	}

	result, err := h.reset.Request(c.Request.Context(), input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to initiate password reset"))
		return
	}

	response := PasswordResetResponse{Message: resetAcceptedMessage}

	if result != nil {
		h.dispatchReset(c.Request.Context(), result)

		if h.isDev {
			expires := result.ExpiresAt
			response.ExpiresAt = &expires
			if token := strings.TrimSpace(result.Token); token != "" {
				response.DevToken = &token
			}
		}
	}

	c.JSON(http.StatusAccepted, response)
}

// confirmReset finalizes the reset with the emailed token.
func (h *PasswordHandler) confirmReset(c *gin.Context) {
	if h.reset == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "password reset unavailable"))
		return
	}

	var req PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid confirm reset payload"))
		return
	}

	input := usecase.PasswordResetConfirmInput{
		Token:       strings.TrimSpace(req.Token),
		NewPassword: req.NewPassword,
		IP:          strings.TrimSpace(c.ClientIP()),
	}

	result, err := h.reset.Confirm(c.Request.Context(), input)
	if err != nil {
		var policyErr *security.PasswordValidationError
		if errors.As(err, &policyErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, policyErr.Error()))
			return
		}

		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrResetTokenInvalid, Status: http.StatusBadRequest, Message: "password reset token invalid"},
			{Err: usecase.ErrResetTokenExpired, Status: http.StatusBadRequest, Message: "password reset token expired"},
		}, http.StatusInternalServerError, "failed to confirm password reset")
		return
	}

	c.JSON(http.StatusOK, PasswordResetConfirmResponse{
		Message:        "Password reset successful",
		ChangedAt:      result.ChangedAt,
		ClosedSessions: result.SessionsClosed,
	})
}

func (h *PasswordHandler) dispatchReset(ctx context.Context, result *usecase.ResetRequestResult) {
	if h.dispatcher == nil || result == nil {
		return
	}

	payload := PasswordResetNotification{
		Contact: strings.TrimSpace(result.Email),
		Expires: result.ExpiresAt,
	}

	if h.isDev {
		payload.DevToken = strings.TrimSpace(result.Token)
	}

	_ = h.dispatcher.SendPasswordReset(ctx, payload)
}
