package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
	"github.com/whitehat88/recruitment-auth/internal/core/port"
	"github.com/whitehat88/recruitment-auth/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka. Auth outcomes
// never wait on the broker: messages go to the async producer's input
// channel and delivery failures surface through the producer's error loop.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType string, userID int64, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	subject := ""
	if userID > 0 {
		subject = strconv.FormatInt(userID, 10)
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    subject,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishLoginSucceeded publishes auth.login.succeeded events.
func (p *EventPublisher) PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error {
	payload := struct {
		UserID    int64          `json:"user_id"`
		Role      string         `json:"role"`
		RecordID  int64          `json:"record_id,omitempty"`
		IP        *string        `json:"ip_address,omitempty"`
		UserAgent *string        `json:"user_agent,omitempty"`
		LoginAt   time.Time      `json:"login_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		UserID:    event.UserID,
		Role:      string(event.Role),
		RecordID:  event.RecordID,
		IP:        event.IP,
		UserAgent: event.UserAgent,
		LoginAt:   event.LoginAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.login.succeeded", event.UserID, event.LoginAt, payload)
}

// PublishLoginFailed publishes auth.login.failed events. The email arrives
// masked; this layer never sees the plaintext address of a failed attempt.
func (p *EventPublisher) PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error {
	payload := struct {
		Email    string         `json:"email"`
		Reason   string         `json:"reason"`
		IP       *string        `json:"ip_address,omitempty"`
		FailedAt time.Time      `json:"failed_at"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}{
		Email:    event.Email,
		Reason:   event.Reason,
		IP:       event.IP,
		FailedAt: event.FailedAt.UTC(),
		Metadata: event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.login.failed", 0, event.FailedAt, payload)
}

// PublishSessionClosed publishes auth.session.closed events.
func (p *EventPublisher) PublishSessionClosed(ctx context.Context, event domain.SessionClosedEvent) error {
	payload := struct {
		UserID   int64          `json:"user_id"`
		RecordID int64          `json:"record_id,omitempty"`
		Reason   string         `json:"reason"`
		ClosedAt time.Time      `json:"closed_at"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}{
		UserID:   event.UserID,
		RecordID: event.RecordID,
		Reason:   event.Reason,
		ClosedAt: event.ClosedAt.UTC(),
		Metadata: event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.session.closed", event.UserID, event.ClosedAt, payload)
}

// PublishPasswordResetRequested publishes auth.password.reset_requested events.
func (p *EventPublisher) PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := struct {
		UserID      int64          `json:"user_id"`
		RequestedAt time.Time      `json:"requested_at"`
		ExpiresAt   time.Time      `json:"expires_at"`
		IP          *string        `json:"ip_address,omitempty"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		UserID:      event.UserID,
		RequestedAt: event.RequestedAt.UTC(),
		ExpiresAt:   event.ExpiresAt.UTC(),
		IP:          event.IP,
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.password.reset_requested", event.UserID, event.RequestedAt, payload)
}

// PublishPasswordResetCompleted publishes auth.password.reset_completed events.
func (p *EventPublisher) PublishPasswordResetCompleted(ctx context.Context, event domain.PasswordResetCompletedEvent) error {
	payload := struct {
		UserID         int64          `json:"user_id"`
		CompletedAt    time.Time      `json:"completed_at"`
		SessionsClosed int            `json:"sessions_closed"`
		Metadata       map[string]any `json:"metadata,omitempty"`
	}{
		UserID:         event.UserID,
		CompletedAt:    event.CompletedAt.UTC(),
		SessionsClosed: event.SessionsClosed,
		Metadata:       event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.password.reset_completed", event.UserID, event.CompletedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
