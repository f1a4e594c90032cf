package domain

import "time"

// ResetToken is the server-side record of an outstanding password reset.
// Only the SHA-256 hash of the token ever reaches storage; the plaintext
// exists once, inside the notification handed to the dispatcher. Role keeps
// the application spelling here, matching the historical password_resets
// rows.
type ResetToken struct {
	TokenHash string
	UserID    int64
	Email     string
	Role      Role
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token has passed its expiry.
func (t ResetToken) Expired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}
