package port

import (
	"context"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
)

// ResetTokenStore keeps outstanding password reset tokens, keyed by token
// hash. Tokens are single use: Consume removes the record as it reads it, so
// a second confirm with the same token fails with repository.ErrNotFound.
// Stores expire records on their own; expiry is also re-checked by the
// caller.
type ResetTokenStore interface {
	Save(ctx context.Context, token domain.ResetToken) error
	Consume(ctx context.Context, tokenHash string) (*domain.ResetToken, error)
}
