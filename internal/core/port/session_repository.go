package port

import (
	"context"
	"time"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
)

// SessionRecordStore deals with auth_sessions storage. Implementations
// consult a SchemaInspector and write only the columns the deployed schema
// actually has; the guaranteed set is user_id, role and login_time.
type SessionRecordStore interface {
	// Create inserts a fresh record and returns its identifier.
	Create(ctx context.Context, record domain.SessionRecord) (int64, error)
	// Close marks the record logged out: logout_time always, is_active and
	// last_activity when the schema has them.
	Close(ctx context.Context, recordID int64, at time.Time) error
	// CloseAllForUser closes every open record for the user and returns how
	// many rows changed. Used when the record identifier is unknown and for
	// post-reset revocation.
	CloseAllForUser(ctx context.Context, userID int64, at time.Time) (int, error)
	// Touch bumps last_activity; a no-op when the column is absent.
	Touch(ctx context.Context, recordID int64, at time.Time) error
	ListActiveByUser(ctx context.Context, userID int64) ([]domain.SessionRecord, error)
}

// SchemaInspector reports which columns a table exposes. Implementations
// never return an error: discovery failure yields an empty set and callers
// degrade to guaranteed columns. Successful lookups are cached for the
// process lifetime.
type SchemaInspector interface {
	Columns(ctx context.Context, table string) domain.ColumnSet
}
