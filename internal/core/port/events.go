package port

import (
	"context"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
)

// EventPublisher publishes auth lifecycle events to the message bus.
// Publishing is best effort everywhere it is called: a broker outage must
// never change an authentication outcome.
type EventPublisher interface {
	PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error
	PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error
	PublishSessionClosed(ctx context.Context, event domain.SessionClosedEvent) error
	PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error
	PublishPasswordResetCompleted(ctx context.Context, event domain.PasswordResetCompletedEvent) error
}
