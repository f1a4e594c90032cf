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
	"github.com/whitehat88/recruitment-auth/internal/infra/logger"
	"github.com/whitehat88/recruitment-auth/internal/infra/security"
	"github.com/whitehat88/recruitment-auth/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled indicates the account exists but is deactivated.
	ErrAccountDisabled = errors.New("account is disabled")
	// ErrSessionClosed indicates the session is definitively over; the client
	// token must be destroyed.
	ErrSessionClosed = errors.New("session closed")
	// ErrSessionUnavailable indicates session state could not be confirmed
	// this request. The client token stays; the request is rejected.
	ErrSessionUnavailable = errors.New("session state unavailable")
)

const defaultPersistTimeout = 5 * time.Second

// LoginInput carries the credentials and client metadata of a login attempt.
type LoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

// RequestMeta describes the client behind an authenticated request.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// LoginResult is what the transport layer needs to establish the session.
type LoginResult struct {
	Token   string
	Session domain.LocalSession
}

// ValidationResult reports the reconciled session. Token is set when cached
// identity drifted from the authoritative rows and the client needs the
// re-minted value.
type ValidationResult struct {
	Session   domain.LocalSession
	Token     string
	Refreshed bool
}

// AuthService reconciles client-held sessions with the users and
// auth_sessions tables. Every authenticated request re-derives identity from
// the authoritative rows; the client token is only a cache.
type AuthService struct {
	cfg      *config.AppConfig
	users    port.UserRepository
	sessions port.SessionRecordStore
	hasher   *security.PasswordHasher
	codec    *security.SessionTokenCodec
	events   port.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(
	cfg *config.AppConfig,
	users port.UserRepository,
	sessions port.SessionRecordStore,
	hasher *security.PasswordHasher,
	codec *security.SessionTokenCodec,
	events port.EventPublisher,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	service := &AuthService{
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		codec:    codec,
		events:   events,
		logger:   log,
	}
	service.now = func() time.Time { return time.Now().UTC() }
	return service
}

// WithClock overrides the internal clock for deterministic tests.
func (s *AuthService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Login verifies credentials and opens a session. A failed session record
// insert does not fail the login; the local session is minted with record id
// zero and logout falls back to closing by user id.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if input.Password == "" {
		return nil, fmt.Errorf("password is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.publishLoginFailed(ctx, email, "unknown_email", input.IP)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.publishLoginFailed(ctx, email, "bad_password", input.IP)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.publishLoginFailed(ctx, email, "account_disabled", input.IP)
		return nil, ErrAccountDisabled
	}

	now := s.now()
	persistCtx, cancel := s.persistContext(ctx)
	defer cancel()

	account := s.resolveAccount(persistCtx, user.ID, user.Role)

	record := domain.SessionRecord{
		UserID:    user.ID,
		Role:      user.Role,
		LoginTime: now,
		IP:        optional(input.IP),
		UserAgent: optional(input.UserAgent),
	}

	recordID, err := s.sessions.Create(persistCtx, record)
	if err != nil {
		// The login still proceeds; the session just has no durable record.
		s.logger.Warn("persist session record failed",
			zap.Int64("user_id", user.ID), zap.Error(err))
		recordID = 0
	}

	if err := s.users.RecordLogin(persistCtx, user.ID, account.ID, user.Role, now); err != nil {
		s.logger.Warn("record login timestamp failed",
			zap.Int64("user_id", user.ID), zap.Error(err))
	}

	displayName := account.DisplayName
	if displayName == "" {
		displayName = user.Email
	}

	session := domain.LocalSession{
		UserID:      user.ID,
		AccountID:   account.ID,
		RecordID:    recordID,
		Role:        user.Role,
		DisplayName: displayName,
		Email:       user.Email,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.sessionTTL()),
	}

	token, err := s.codec.Mint(session)
	if err != nil {
		return nil, fmt.Errorf("mint session token: %w", err)
	}

	event := domain.LoginSucceededEvent{
		EventID:   uuid.NewString(),
		UserID:    user.ID,
		Role:      user.Role,
		RecordID:  recordID,
		IP:        optional(input.IP),
		UserAgent: optional(input.UserAgent),
		LoginAt:   now,
	}
	if err := s.events.PublishLoginSucceeded(ctx, event); err != nil {
		s.logger.Warn("publish login succeeded failed",
			zap.Int64("user_id", user.ID), zap.Error(err))
	}

	return &LoginResult{Token: token, Session: session}, nil
}

// Validate reconciles the client token with the authoritative rows. The
// returned session carries fresh role, email and display name; when those
// drifted from the token's cache, Token holds the re-minted value.
func (s *AuthService) Validate(ctx context.Context, token string, meta RequestMeta) (*ValidationResult, error) {
	session, err := s.codec.Verify(token)
	if err != nil {
		return nil, ErrSessionClosed
	}

	persistCtx, cancel := s.persistContext(ctx)
	defer cancel()

	user, err := s.users.GetByID(persistCtx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.forceClose(ctx, *session, "user_missing", meta)
			return nil, ErrSessionClosed
		}
		s.logger.Warn("session revalidation unavailable",
			zap.Int64("user_id", session.UserID), zap.Error(err))
		return nil, ErrSessionUnavailable
	}

	if !user.IsActive {
		s.forceClose(ctx, *session, "account_disabled", meta)
		return nil, ErrSessionClosed
	}

	account := s.resolveAccount(persistCtx, user.ID, user.Role)
	refreshed := session.Refresh(*user, account)

	if session.RecordID > 0 {
		if err := s.sessions.Touch(persistCtx, session.RecordID, s.now()); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("touch session record failed",
				zap.Int64("record_id", session.RecordID), zap.Error(err))
		}
	}

	result := &ValidationResult{Session: *session, Refreshed: refreshed}
	if refreshed {
		minted, err := s.codec.Mint(*session)
		if err != nil {
			return nil, fmt.Errorf("mint refreshed session token: %w", err)
		}
		result.Token = minted
	}

	return result, nil
}

// Logout closes the persisted record behind the token. Persistence failures
// are logged, never surfaced: the caller destroys the client token
// regardless, so a user can always log out during an outage.
func (s *AuthService) Logout(ctx context.Context, token string) {
	// Expired tokens still identify the record to close.
	session, err := s.codec.Decode(token)
	if err != nil {
		return
	}

	now := s.now()
	persistCtx, cancel := s.persistContext(ctx)
	defer cancel()

	closed := s.closeRecords(persistCtx, *session, now)

	if err := s.users.RecordLogout(persistCtx, session.UserID, session.AccountID, session.Role, now); err != nil {
		s.logger.Warn("record logout timestamp failed",
			zap.Int64("user_id", session.UserID), zap.Error(err))
	}

	event := domain.SessionClosedEvent{
		EventID:  uuid.NewString(),
		UserID:   session.UserID,
		RecordID: session.RecordID,
		Reason:   "logout",
		ClosedAt: now,
	}
	if closed == 0 {
		event.Reason = "logout_unpersisted"
	}
	if err := s.events.PublishSessionClosed(ctx, event); err != nil {
		s.logger.Warn("publish session closed failed",
			zap.Int64("user_id", session.UserID), zap.Error(err))
	}
}

// ListSessions returns the caller's active session records, newest first.
func (s *AuthService) ListSessions(ctx context.Context, userID int64) ([]domain.SessionRecord, error) {
	persistCtx, cancel := s.persistContext(ctx)
	defer cancel()

	records, err := s.sessions.ListActiveByUser(persistCtx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return records, nil
}

// forceClose marks the record behind a failed revalidation inactive. Best
// effort: the caller reports the session closed either way.
func (s *AuthService) forceClose(ctx context.Context, session domain.LocalSession, reason string, meta RequestMeta) {
	now := s.now()
	persistCtx, cancel := s.persistContext(ctx)
	defer cancel()

	s.closeRecords(persistCtx, session, now)

	event := domain.SessionClosedEvent{
		EventID:  uuid.NewString(),
		UserID:   session.UserID,
		RecordID: session.RecordID,
		Reason:   reason,
		ClosedAt: now,
	}
	if ip := strings.TrimSpace(meta.IP); ip != "" {
		event.Metadata = map[string]any{"ip": logger.MaskIP(ip)}
	}
	if err := s.events.PublishSessionClosed(ctx, event); err != nil {
		s.logger.Warn("publish session closed failed",
			zap.Int64("user_id", session.UserID), zap.Error(err))
	}
}

// closeRecords closes the record referenced by the session, or every active
// record for the user when the session predates record creation. Returns the
// number of records closed.
func (s *AuthService) closeRecords(ctx context.Context, session domain.LocalSession, at time.Time) int {
	if session.RecordID > 0 {
		err := s.sessions.Close(ctx, session.RecordID, at)
		switch {
		case err == nil:
			return 1
		case errors.Is(err, repository.ErrNotFound):
			return 0
		default:
			s.logger.Warn("close session record failed",
				zap.Int64("record_id", session.RecordID), zap.Error(err))
			return 0
		}
	}

	count, err := s.sessions.CloseAllForUser(ctx, session.UserID, at)
	if err != nil {
		s.logger.Warn("close user session records failed",
			zap.Int64("user_id", session.UserID), zap.Error(err))
		return 0
	}
	return count
}

// resolveAccount loads the profile row for display name and account id.
// Lookup failure degrades to user-level values only.
func (s *AuthService) resolveAccount(ctx context.Context, userID int64, role domain.Role) domain.Account {
	account, err := s.users.GetAccount(ctx, userID, role)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("resolve account profile failed",
				zap.Int64("user_id", userID), zap.Error(err))
		}
		return domain.Account{}
	}
	return *account
}

func (s *AuthService) publishLoginFailed(ctx context.Context, email, reason, ip string) {
	event := domain.LoginFailedEvent{
		EventID:  uuid.NewString(),
		Email:    logger.MaskEmail(email),
		Reason:   reason,
		IP:       optional(ip),
		FailedAt: s.now(),
	}
	if err := s.events.PublishLoginFailed(ctx, event); err != nil {
		s.logger.Warn("publish login failed event failed", zap.Error(err))
	}
}

func (s *AuthService) sessionTTL() time.Duration {
	ttl := s.cfg.Session.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return ttl
}

func (s *AuthService) persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.cfg.Session.PersistTimeout
	if timeout <= 0 {
		timeout = defaultPersistTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
