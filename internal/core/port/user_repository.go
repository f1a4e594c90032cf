package port

import (
	"context"
	"time"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
)

// UserRepository exposes persistence behavior for users and their profile
// rows.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// GetAccount resolves the admins or applicants row backing the user,
	// selected by role. Returns repository.ErrNotFound when no profile row
	// exists; callers degrade to user-level values.
	GetAccount(ctx context.Context, userID int64, role domain.Role) (*domain.Account, error)
	// RecordLogin and RecordLogout bump the bookkeeping timestamps on users
	// and the matching profile table, writing only columns the deployed
	// schema has. The profile row is keyed by accountID; zero skips it.
	RecordLogin(ctx context.Context, userID, accountID int64, role domain.Role, at time.Time) error
	RecordLogout(ctx context.Context, userID, accountID int64, role domain.Role, at time.Time) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string, changedAt time.Time) error
}
