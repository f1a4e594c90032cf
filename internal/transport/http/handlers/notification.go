package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/whitehat88/recruitment-auth/internal/infra/logger"
)

// NotificationDispatcher hands reset credentials to a downstream notifier.
type NotificationDispatcher interface {
	SendPasswordReset(ctx context.Context, payload PasswordResetNotification) error
}

// PasswordResetNotification captures data needed to deliver a reset link.
type PasswordResetNotification struct {
	Contact  string
	DevToken string
	Expires  time.Time
}

type noopDispatcher struct{}

func (noopDispatcher) SendPasswordReset(ctx context.Context, payload PasswordResetNotification) error {
	return nil
}

// LoggingNotificationDispatcher records credential dispatch events for
// observability without delivering them.
type LoggingNotificationDispatcher struct {
	logger *zap.Logger
}

// NewLoggingNotificationDispatcher constructs a notification dispatcher backed by structured logging.
func NewLoggingNotificationDispatcher(log *zap.Logger) NotificationDispatcher {
	if log == nil {
		return noopDispatcher{}
	}
	return &LoggingNotificationDispatcher{logger: log}
}

func (d *LoggingNotificationDispatcher) SendPasswordReset(ctx context.Context, payload PasswordResetNotification) error {
	if d == nil || d.logger == nil {
		return nil
	}

	fields := []zap.Field{
		zap.String("contact", logger.MaskEmail(payload.Contact)),
		zap.Time("expires_at", payload.Expires),
	}

	if payload.DevToken != "" {
		fields = append(fields, zap.String("dev_token", payload.DevToken))
	}

	d.logger.Info("dispatch password reset", fields...)
	return nil
}
