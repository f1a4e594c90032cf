package domain

import "time"

// SessionRecord represents one row of the auth_sessions table. Every login
// inserts a fresh record; nothing closes the previous ones, so a user may
// have several active records at once (one per device or browser).
//
// Only UserID, Role and LoginTime are guaranteed to exist in every deployed
// schema. The remaining fields are written when introspection reports the
// matching column, and read back as zero values otherwise.
type SessionRecord struct {
	ID           int64
	UserID       int64
	Role         Role
	LoginTime    time.Time
	LogoutTime   *time.Time
	LastActivity *time.Time
	IP           *string
	UserAgent    *string
	Active       bool
}

// Open reports whether the record still represents a live login at the
// supplied moment.
func (r SessionRecord) Open(at time.Time) bool {
	if !r.Active {
		return false
	}
	return r.LogoutTime == nil || r.LogoutTime.After(at)
}

// LocalSession is the request-scoped identity carried by the signed client
// token. It is rebuilt for every request; the embedded role, name and email
// are a cache of the authoritative rows and are refreshed on each
// validation, never trusted on their own.
type LocalSession struct {
	UserID      int64
	AccountID   int64
	RecordID    int64
	Role        Role
	DisplayName string
	Email       string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the session has passed its expiry.
func (s LocalSession) Expired(at time.Time) bool {
	return !s.ExpiresAt.After(at)
}

// Refresh overwrites the cached identity fields from the authoritative user
// and account rows. Returns true when anything drifted, meaning the client
// token needs re-minting.
func (s *LocalSession) Refresh(user User, account Account) bool {
	changed := false
	if s.Role != user.Role {
		s.Role = user.Role
		changed = true
	}
	if s.Email != user.Email {
		s.Email = user.Email
		changed = true
	}
	if account.ID != 0 && s.AccountID != account.ID {
		s.AccountID = account.ID
		changed = true
	}
	if account.DisplayName != "" && s.DisplayName != account.DisplayName {
		s.DisplayName = account.DisplayName
		changed = true
	}
	return changed
}
