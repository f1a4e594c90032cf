package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
	"github.com/whitehat88/recruitment-auth/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. It stands in
// whenever brokers are not configured or the producer fails to start, so the
// auth flows keep their event seam in every environment.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a logging event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType string, userID int64, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	fields := []zap.Field{
		zap.String("event_type", eventType),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	}
	if userID > 0 {
		fields = append(fields, zap.Int64("user_id", userID))
	}

	p.logger.Info("stub event published", fields...)
}

// PublishLoginSucceeded logs auth.login.succeeded events.
func (p *StubPublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	payload := map[string]any{
		"role":       event.Role,
		"record_id":  event.RecordID,
		"ip_address": event.IP,
		"user_agent": event.UserAgent,
		"login_at":   event.LoginAt,
		"metadata":   event.Metadata,
	}
	p.logEvent("auth.login.succeeded", event.UserID, event.LoginAt, payload)
	return nil
}

// PublishLoginFailed logs auth.login.failed events.
func (p *StubPublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	payload := map[string]any{
		"email":      event.Email,
		"reason":     event.Reason,
		"ip_address": event.IP,
		"failed_at":  event.FailedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent("auth.login.failed", 0, event.FailedAt, payload)
	return nil
}

// PublishSessionClosed logs auth.session.closed events.
func (p *StubPublisher) PublishSessionClosed(_ context.Context, event domain.SessionClosedEvent) error {
	payload := map[string]any{
		"record_id": event.RecordID,
		"reason":    event.Reason,
		"closed_at": event.ClosedAt,
		"metadata":  event.Metadata,
	}
	p.logEvent("auth.session.closed", event.UserID, event.ClosedAt, payload)
	return nil
}

// PublishPasswordResetRequested logs auth.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := map[string]any{
		"requested_at": event.RequestedAt,
		"expires_at":   event.ExpiresAt,
		"ip_address":   event.IP,
		"metadata":     event.Metadata,
	}
	p.logEvent("auth.password.reset_requested", event.UserID, event.RequestedAt, payload)
	return nil
}

// PublishPasswordResetCompleted logs auth.password.reset_completed events.
func (p *StubPublisher) PublishPasswordResetCompleted(_ context.Context, event domain.PasswordResetCompletedEvent) error {
	payload := map[string]any{
		"completed_at":    event.CompletedAt,
		"sessions_closed": event.SessionsClosed,
		"metadata":        event.Metadata,
	}
	p.logEvent("auth.password.reset_completed", event.UserID, event.CompletedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
