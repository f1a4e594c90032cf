package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
	"github.com/whitehat88/recruitment-auth/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T, asyncProducer sarama.AsyncProducer) *EventPublisher {
	t.Helper()

	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "recruitment",
		},
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}

	return NewEventPublisher(producer, config.AppSettings{
		Name: "recruitment-auth",
		Env:  "test",
	}, zaptest.NewLogger(t))
}

func TestPublishLoginSucceeded(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	loginAt := time.Date(2025, 10, 31, 12, 0, 0, 0, time.UTC)
	ip := "203.0.113.7"
	event := domain.LoginSucceededEvent{
		EventID:  "event-123",
		UserID:   42,
		Role:     domain.RoleHR,
		RecordID: 900,
		IP:       &ip,
		LoginAt:  loginAt,
		Metadata: map[string]any{"source": "unit-test"},
	}

	if err := publisher.PublishLoginSucceeded(context.Background(), event); err != nil {
		t.Fatalf("PublishLoginSucceeded returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "recruitment.auth.login.succeeded" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		if got := envelope["event_type"]; got != "auth.login.succeeded" {
			t.Fatalf("unexpected event_type: %v", got)
		}

		if got := envelope["event_id"]; got != event.EventID {
			t.Fatalf("unexpected event_id: %v", got)
		}

		if got := envelope["user_id"]; got != "42" {
			t.Fatalf("unexpected user_id: %v", got)
		}

		timestamp, ok := envelope["timestamp"].(string)
		if !ok {
			t.Fatalf("timestamp not a string: %T", envelope["timestamp"])
		}
		if timestamp != loginAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected timestamp: %s", timestamp)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		userID, ok := payload["user_id"].(float64)
		if !ok {
			t.Fatalf("payload user_id not numeric: %T", payload["user_id"])
		}
		if int64(userID) != event.UserID {
			t.Fatalf("unexpected payload.user_id: %v", userID)
		}

		if got := payload["role"]; got != "hr" {
			t.Fatalf("unexpected role: %v", got)
		}

		recordID, ok := payload["record_id"].(float64)
		if !ok {
			t.Fatalf("record_id not numeric: %T", payload["record_id"])
		}
		if int64(recordID) != event.RecordID {
			t.Fatalf("unexpected record_id: %v", recordID)
		}

		if got := payload["ip_address"]; got != ip {
			t.Fatalf("unexpected ip_address: %v", got)
		}

		metadata, ok := payload["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("metadata not a map: %T", payload["metadata"])
		}
		if metadata["source"] != "unit-test" {
			t.Fatalf("metadata did not round-trip: %v", metadata)
		}

		envelopeMetadata, ok := envelope["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("envelope metadata not a map: %T", envelope["metadata"])
		}
		if envelopeMetadata["service"] != "recruitment-auth" {
			t.Fatalf("unexpected metadata service: %v", envelopeMetadata["service"])
		}
		if envelopeMetadata["environment"] != "test" {
			t.Fatalf("unexpected metadata environment: %v", envelopeMetadata["environment"])
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}

func TestPublishLoginFailedOmitsSubject(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	failedAt := time.Date(2025, 10, 31, 12, 5, 0, 0, time.UTC)
	event := domain.LoginFailedEvent{
		EventID:  "event-456",
		Email:    "joh***@example.com",
		Reason:   "bad_password",
		FailedAt: failedAt,
	}

	if err := publisher.PublishLoginFailed(context.Background(), event); err != nil {
		t.Fatalf("PublishLoginFailed returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "recruitment.auth.login.failed" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		// A failed login has no confirmed subject; the envelope carries none.
		if _, present := envelope["user_id"]; present {
			t.Fatalf("expected no user_id on failed login envelope, got %v", envelope["user_id"])
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		if got := payload["email"]; got != event.Email {
			t.Fatalf("unexpected email: %v", got)
		}
		if got := payload["reason"]; got != event.Reason {
			t.Fatalf("unexpected reason: %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}

func TestPublishSessionClosed(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	closedAt := time.Date(2025, 10, 31, 13, 0, 0, 0, time.UTC)
	event := domain.SessionClosedEvent{
		EventID:  "event-789",
		UserID:   42,
		RecordID: 900,
		Reason:   "logout",
		ClosedAt: closedAt,
	}

	if err := publisher.PublishSessionClosed(context.Background(), event); err != nil {
		t.Fatalf("PublishSessionClosed returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "recruitment.auth.session.closed" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		if got := payload["reason"]; got != "logout" {
			t.Fatalf("unexpected reason: %v", got)
		}

		closedAtValue, ok := payload["closed_at"].(string)
		if !ok {
			t.Fatalf("closed_at not a string: %T", payload["closed_at"])
		}
		if closedAtValue != closedAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected closed_at: %s", closedAtValue)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}

func TestPublishBlocksUntilContextCancelled(t *testing.T) {
	// Unbuffered input with no consumer: publish must fail with the context
	// error instead of hanging.
	asyncProducer := newFakeAsyncProducer()
	asyncProducer.input = make(chan *sarama.ProducerMessage)

	publisher := newTestPublisher(t, asyncProducer)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	event := domain.PasswordResetCompletedEvent{
		EventID:     "event-901",
		UserID:      7,
		CompletedAt: time.Date(2025, 10, 31, 14, 0, 0, 0, time.UTC),
	}

	if err := publisher.PublishPasswordResetCompleted(ctx, event); err == nil {
		t.Fatal("expected context error when producer input is blocked")
	}
}
