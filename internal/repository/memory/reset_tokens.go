package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
	"github.com/whitehat88/recruitment-auth/internal/repository"
)

// ResetTokenStore is the in-process fallback used when Redis is unreachable
// at startup. Tokens live only as long as the process and are never shared
// across instances.
type ResetTokenStore struct {
	mu     sync.Mutex
	tokens map[string]domain.ResetToken
	now    func() time.Time
}

// NewResetTokenStore constructs an empty in-memory store.
func NewResetTokenStore() *ResetTokenStore {
	return &ResetTokenStore{
		tokens: make(map[string]domain.ResetToken),
		now:    time.Now,
	}
}

// Save stores the token under its hash.
func (s *ResetTokenStore) Save(_ context.Context, token domain.ResetToken) error {
	hash := strings.TrimSpace(token.TokenHash)
	switch {
	case hash == "":
		return errors.New("token hash is required")
	case token.UserID <= 0:
		return errors.New("user id is required")
	}

	now := s.now().UTC()
	if !token.ExpiresAt.After(now) {
		return errors.New("token is already expired")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune(now)
	s.tokens[hash] = token
	return nil
}

// Consume retrieves and removes the token.
func (s *ResetTokenStore) Consume(_ context.Context, tokenHash string) (*domain.ResetToken, error) {
	hash := strings.TrimSpace(tokenHash)
	if hash == "" {
		return nil, errors.New("token hash is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune(s.now().UTC())

	token, ok := s.tokens[hash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(s.tokens, hash)

	return &token, nil
}

// WithClock overrides the internal clock, used in tests.
func (s *ResetTokenStore) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// prune drops expired entries. Callers hold the mutex.
func (s *ResetTokenStore) prune(now time.Time) {
	for hash, token := range s.tokens {
		if token.Expired(now) {
			delete(s.tokens, hash)
		}
	}
}
