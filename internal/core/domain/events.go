package domain

import "time"

// LoginSucceededEvent represents the payload for auth.login.succeeded messages.
type LoginSucceededEvent struct {
	EventID   string
	UserID    int64
	Role      Role
	RecordID  int64
	IP        *string
	UserAgent *string
	LoginAt   time.Time
	Metadata  map[string]any
}

// LoginFailedEvent represents the payload for auth.login.failed messages.
// Email is masked before it reaches the envelope.
type LoginFailedEvent struct {
	EventID  string
	Email    string
	Reason   string
	IP       *string
	FailedAt time.Time
	Metadata map[string]any
}

// SessionClosedEvent represents the payload for auth.session.closed messages.
type SessionClosedEvent struct {
	EventID  string
	UserID   int64
	RecordID int64
	Reason   string
	ClosedAt time.Time
	Metadata map[string]any
}

// PasswordResetRequestedEvent represents the payload for auth.password.reset_requested messages.
type PasswordResetRequestedEvent struct {
	EventID     string
	UserID      int64
	RequestedAt time.Time
	ExpiresAt   time.Time
	IP          *string
	Metadata    map[string]any
}

// PasswordResetCompletedEvent represents the payload for auth.password.reset_completed messages.
type PasswordResetCompletedEvent struct {
	EventID        string
	UserID         int64
	CompletedAt    time.Time
	SessionsClosed int
	Metadata       map[string]any
}
