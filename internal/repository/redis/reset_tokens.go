package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
	"github.com/whitehat88/recruitment-auth/internal/repository"
)

const (
	defaultResetPrefix = "password_reset"

	fieldUserID    = "user_id"
	fieldEmail     = "email"
	fieldRole      = "role"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"
)

// ResetTokenStore persists password reset tokens in Redis, keyed by token
// hash. Entries carry a TTL matching the token expiry so abandoned requests
// clean themselves up.
type ResetTokenStore struct {
	client *red.Client
	prefix string
	now    func() time.Time
}

// NewResetTokenStore constructs a store with the provided Redis client and key prefix.
func NewResetTokenStore(client *red.Client, keyPrefix string) *ResetTokenStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultResetPrefix
	}

	return &ResetTokenStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// Save persists the token under its hash.
func (s *ResetTokenStore) Save(ctx context.Context, token domain.ResetToken) error {
	hash := strings.TrimSpace(token.TokenHash)
	switch {
	case hash == "":
		return errors.New("token hash is required")
	case token.UserID <= 0:
		return errors.New("user id is required")
	}

	ttl := token.ExpiresAt.Sub(s.now().UTC())
	if ttl <= 0 {
		return errors.New("token is already expired")
	}

	key := s.key(hash)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		fieldUserID:    strconv.FormatInt(token.UserID, 10),
		fieldEmail:     token.Email,
		fieldRole:      string(token.Role),
		fieldCreatedAt: strconv.FormatInt(token.CreatedAt.Unix(), 10),
		fieldExpiresAt: strconv.FormatInt(token.ExpiresAt.Unix(), 10),
	})
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store reset token: %w", err)
	}

	return nil
}

// Consume retrieves and removes the token. When two confirmations race, the
// DEL decides the winner; the loser gets repository.ErrNotFound.
func (s *ResetTokenStore) Consume(ctx context.Context, tokenHash string) (*domain.ResetToken, error) {
	hash := strings.TrimSpace(tokenHash)
	if hash == "" {
		return nil, errors.New("token hash is required")
	}

	key := s.key(hash)

	values, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall reset token: %w", err)
	}
	if len(values) == 0 {
		return nil, repository.ErrNotFound
	}

	deleted, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis delete reset token: %w", err)
	}
	if deleted == 0 {
		return nil, repository.ErrNotFound
	}

	userID, err := strconv.ParseInt(values[fieldUserID], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse user_id: %w", err)
	}

	createdAt, err := parseUnix(values[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	expiresAt, err := parseUnix(values[fieldExpiresAt])
	if err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}

	return &domain.ResetToken{
		TokenHash: hash,
		UserID:    userID,
		Email:     values[fieldEmail],
		Role:      domain.Role(values[fieldRole]),
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

// WithClock overrides the internal clock, used in tests.
func (s *ResetTokenStore) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

func (s *ResetTokenStore) key(hash string) string {
	return fmt.Sprintf("%s:%s", s.prefix, hash)
}

func parseUnix(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, errors.New("timestamp is empty")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(v, 0).UTC(), nil
}
