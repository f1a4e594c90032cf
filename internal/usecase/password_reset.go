package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
	"github.com/whitehat88/recruitment-auth/internal/core/port"
	"github.com/whitehat88/recruitment-auth/internal/infra/config"
	"github.com/whitehat88/recruitment-auth/internal/infra/security"
	"github.com/whitehat88/recruitment-auth/internal/repository"
)

const (
	defaultResetTTL        = time.Hour
	defaultResetTokenBytes = 32
)

var (
	// ErrResetTokenInvalid indicates the supplied reset token is unknown or already used.
	ErrResetTokenInvalid = errors.New("password reset token invalid")
	// ErrResetTokenExpired indicates the supplied reset token has expired.
	ErrResetTokenExpired = errors.New("password reset token expired")
)

// PasswordResetRequestInput encapsulates a password reset request.
type PasswordResetRequestInput struct {
	Email string
	IP    string
}

// ResetRequestResult carries the generated artifact for the notification
// dispatcher. Token holds the raw value; only its hash is stored.
type ResetRequestResult struct {
	UserID    int64
	Email     string
	Token     string
	ExpiresAt time.Time
}

// PasswordResetConfirmInput carries the payload to finalize a reset.
type PasswordResetConfirmInput struct {
	Token       string
	NewPassword string
	IP          string
}

// PasswordResetConfirmResult describes the outcome of a confirmed reset.
type PasswordResetConfirmResult struct {
	UserID         int64
	ChangedAt      time.Time
	SessionsClosed int
}

// PasswordResetService coordinates reset initiation and completion.
type PasswordResetService struct {
	cfg      *config.AppConfig
	users    port.UserRepository
	tokens   port.ResetTokenStore
	sessions port.SessionRecordStore
	hasher   *security.PasswordHasher
	policy   *security.PasswordPolicy
	events   port.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewPasswordResetService constructs a PasswordResetService.
func NewPasswordResetService(
	cfg *config.AppConfig,
	users port.UserRepository,
	tokens port.ResetTokenStore,
	sessions port.SessionRecordStore,
	hasher *security.PasswordHasher,
	policy *security.PasswordPolicy,
	events port.EventPublisher,
	log *zap.Logger,
) *PasswordResetService {
	if policy == nil {
		policy = security.NewPasswordPolicy(0, 0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	service := &PasswordResetService{
		cfg:      cfg,
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		hasher:   hasher,
		policy:   policy,
		events:   events,
		logger:   log,
	}
	service.now = func() time.Time { return time.Now().UTC() }
	return service
}

// WithClock overrides the internal clock for deterministic tests.
func (s *PasswordResetService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Request issues a reset token for the account behind the email. A nil
// result with nil error means no account matched; callers answer with the
// same generic acceptance either way so the endpoint cannot be used to probe
// for registered addresses.
func (s *PasswordResetService) Request(ctx context.Context, input PasswordResetRequestInput) (*ResetRequestResult, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	persistCtx, cancel := s.persistContext(ctx)
	defer cancel()

	user, err := s.users.GetByEmail(persistCtx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return nil, nil
	}

	raw, err := security.GenerateSecureToken(s.tokenBytes())
	if err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.resetTTL())

	token := domain.ResetToken{
		TokenHash: security.HashToken(raw),
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := s.tokens.Save(persistCtx, token); err != nil {
		return nil, fmt.Errorf("store reset token: %w", err)
	}

	event := domain.PasswordResetRequestedEvent{
		EventID:     uuid.NewString(),
		UserID:      user.ID,
		RequestedAt: now,
		ExpiresAt:   expiresAt,
		IP:          optional(input.IP),
	}
	if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
		s.logger.Warn("publish password reset requested failed",
			zap.Int64("user_id", user.ID), zap.Error(err))
	}

	return &ResetRequestResult{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     raw,
		ExpiresAt: expiresAt,
	}, nil
}

// Confirm consumes the single-use token, applies the password policy and
// replaces the stored hash. Every active session of the user is closed so a
// hijacked session does not survive the reset.
func (s *PasswordResetService) Confirm(ctx context.Context, input PasswordResetConfirmInput) (*PasswordResetConfirmResult, error) {
	raw := strings.TrimSpace(input.Token)
	if raw == "" {
		return nil, ErrResetTokenInvalid
	}
	if input.NewPassword == "" {
		return nil, fmt.Errorf("new password is required")
	}

	persistCtx, cancel := s.persistContext(ctx)
	defer cancel()

	record, err := s.tokens.Consume(persistCtx, security.HashToken(raw))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrResetTokenInvalid
		}
		return nil, fmt.Errorf("consume reset token: %w", err)
	}

	now := s.now()
	if record.Expired(now) {
		return nil, ErrResetTokenExpired
	}

	user, err := s.users.GetByID(persistCtx, record.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrResetTokenInvalid
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	userInputs := []string{user.Email}
	if account, err := s.users.GetAccount(persistCtx, user.ID, user.Role); err == nil && account.DisplayName != "" {
		userInputs = append(userInputs, account.DisplayName)
	}
	if err := s.policy.Validate(input.NewPassword, userInputs...); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(persistCtx, user.ID, hashed, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrResetTokenInvalid
		}
		return nil, fmt.Errorf("update password: %w", err)
	}

	closed, err := s.sessions.CloseAllForUser(persistCtx, user.ID, now)
	if err != nil {
		s.logger.Warn("close sessions after reset failed",
			zap.Int64("user_id", user.ID), zap.Error(err))
		closed = 0
	}

	event := domain.PasswordResetCompletedEvent{
		EventID:        uuid.NewString(),
		UserID:         user.ID,
		CompletedAt:    now,
		SessionsClosed: closed,
	}
	if err := s.events.PublishPasswordResetCompleted(ctx, event); err != nil {
		s.logger.Warn("publish password reset completed failed",
			zap.Int64("user_id", user.ID), zap.Error(err))
	}

	return &PasswordResetConfirmResult{
		UserID:         user.ID,
		ChangedAt:      now,
		SessionsClosed: closed,
	}, nil
}

func (s *PasswordResetService) resetTTL() time.Duration {
	ttl := s.cfg.Reset.TokenTTL
	if ttl <= 0 {
		ttl = defaultResetTTL
	}
	return ttl
}

func (s *PasswordResetService) tokenBytes() int {
	n := s.cfg.Reset.TokenBytes
	if n <= 0 {
		n = defaultResetTokenBytes
	}
	return n
}

func (s *PasswordResetService) persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.cfg.Session.PersistTimeout
	if timeout <= 0 {
		timeout = defaultPersistTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
