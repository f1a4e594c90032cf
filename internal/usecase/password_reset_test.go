package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
	"github.com/whitehat88/recruitment-auth/internal/infra/config"
	"github.com/whitehat88/recruitment-auth/internal/infra/security"
	"github.com/whitehat88/recruitment-auth/internal/repository"
)

type fakeResetTokenStore struct {
	tokens   map[string]domain.ResetToken
	saved    []domain.ResetToken
	failSave error
}

func (f *fakeResetTokenStore) Save(_ context.Context, token domain.ResetToken) error {
	if f.failSave != nil {
		return f.failSave
	}
	if f.tokens == nil {
		f.tokens = make(map[string]domain.ResetToken)
	}
	f.tokens[token.TokenHash] = token
	f.saved = append(f.saved, token)
	return nil
}

func (f *fakeResetTokenStore) Consume(_ context.Context, tokenHash string) (*domain.ResetToken, error) {
	token, ok := f.tokens[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(f.tokens, tokenHash)
	return &token, nil
}

func newTestResetService(t *testing.T, users *fakeUserRepository, tokens *fakeResetTokenStore, sessions *fakeSessionStore, events *fakeEventPublisher) *PasswordResetService {
	t.Helper()

	cfg := &config.AppConfig{}
	cfg.Session.PersistTimeout = time.Second
	cfg.Reset.TokenTTL = time.Hour
	cfg.Reset.TokenBytes = 32

	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	policy := security.NewPasswordPolicy(8, 2)

	svc := NewPasswordResetService(cfg, users, tokens, sessions, hasher, policy, events, nil)
	svc.WithClock(func() time.Time { return testClock })
	return svc
}

func TestPasswordResetService_Request_GeneratesArtifact(t *testing.T) {
	user := activeUser(t)
	users := &fakeUserRepository{usersByEmail: map[string]domain.User{user.Email: user}}
	tokens := &fakeResetTokenStore{}
	events := &fakeEventPublisher{}
	svc := newTestResetService(t, users, tokens, &fakeSessionStore{}, events)

	result, err := svc.Request(context.Background(), PasswordResetRequestInput{Email: user.Email, IP: "203.0.113.9"})
	if err != nil {
		t.Fatalf("Request returned error: %v", err)
	}
	if result == nil || result.Token == "" {
		t.Fatal("expected a reset artifact for a known account")
	}
	if !result.ExpiresAt.Equal(testClock.Add(time.Hour)) {
		t.Fatalf("unexpected expiry: %v", result.ExpiresAt)
	}

	if len(tokens.saved) != 1 {
		t.Fatalf("expected 1 stored token, got %d", len(tokens.saved))
	}
	stored := tokens.saved[0]
	if stored.TokenHash != security.HashToken(result.Token) {
		t.Fatal("stored hash must match the issued token")
	}
	if stored.TokenHash == result.Token {
		t.Fatal("raw token must never be stored")
	}
	if stored.UserID != user.ID || stored.Role != user.Role {
		t.Fatalf("unexpected stored token: %+v", stored)
	}

	if len(events.resetRequested) != 1 || events.resetRequested[0].UserID != user.ID {
		t.Fatalf("expected reset requested event, got %+v", events.resetRequested)
	}
}

func TestPasswordResetService_Request_UnknownEmailIsGeneric(t *testing.T) {
	tokens := &fakeResetTokenStore{}
	events := &fakeEventPublisher{}
	svc := newTestResetService(t, &fakeUserRepository{}, tokens, &fakeSessionStore{}, events)

	result, err := svc.Request(context.Background(), PasswordResetRequestInput{Email: "nobody@whitehat88.example"})
	if err != nil {
		t.Fatalf("unknown email must not error, got %v", err)
	}
	if result != nil {
		t.Fatalf("unknown email must not produce an artifact, got %+v", result)
	}
	if len(tokens.saved) != 0 || len(events.resetRequested) != 0 {
		t.Fatal("unknown email must not store tokens or publish events")
	}
}

func TestPasswordResetService_Request_DisabledAccountIsGeneric(t *testing.T) {
	user := activeUser(t)
	user.IsActive = false
	users := &fakeUserRepository{usersByEmail: map[string]domain.User{user.Email: user}}
	tokens := &fakeResetTokenStore{}
	svc := newTestResetService(t, users, tokens, &fakeSessionStore{}, &fakeEventPublisher{})

	result, err := svc.Request(context.Background(), PasswordResetRequestInput{Email: user.Email})
	if err != nil || result != nil {
		t.Fatalf("disabled account must behave like an unknown one, got %+v %v", result, err)
	}
	if len(tokens.saved) != 0 {
		t.Fatal("disabled account must not receive a reset token")
	}
}

func TestPasswordResetService_Confirm_CompletesFlow(t *testing.T) {
	user := activeUser(t)
	users := &fakeUserRepository{
		usersByEmail: map[string]domain.User{user.Email: user},
		usersByID:    map[int64]domain.User{user.ID: user},
	}
	tokens := &fakeResetTokenStore{}
	sessions := &fakeSessionStore{closeAllCount: 2}
	events := &fakeEventPublisher{}
	svc := newTestResetService(t, users, tokens, sessions, events)

	issued, err := svc.Request(context.Background(), PasswordResetRequestInput{Email: user.Email})
	if err != nil || issued == nil {
		t.Fatalf("Request failed: %+v %v", issued, err)
	}

	result, err := svc.Confirm(context.Background(), PasswordResetConfirmInput{
		Token:       issued.Token,
		NewPassword: "C0mplex!Passphrase#2025",
	})
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if result.UserID != user.ID || result.SessionsClosed != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if len(users.passwordUpdates) != 1 {
		t.Fatalf("expected 1 password update, got %d", len(users.passwordUpdates))
	}
	updated := users.passwordUpdates[0]
	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	if ok, err := hasher.Verify("C0mplex!Passphrase#2025", updated.hash); err != nil || !ok {
		t.Fatalf("stored hash does not match the new password: %v", err)
	}

	if len(sessions.closedAllFor) != 1 || sessions.closedAllFor[0] != user.ID {
		t.Fatalf("expected all sessions closed for user, got %v", sessions.closedAllFor)
	}
	if len(events.resetCompleted) != 1 || events.resetCompleted[0].SessionsClosed != 2 {
		t.Fatalf("expected reset completed event, got %+v", events.resetCompleted)
	}

	// The token is single use.
	if _, err := svc.Confirm(context.Background(), PasswordResetConfirmInput{
		Token:       issued.Token,
		NewPassword: "An0ther!Passphrase#2025",
	}); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid on reuse, got %v", err)
	}
}

func TestPasswordResetService_Confirm_Expired(t *testing.T) {
	user := activeUser(t)
	users := &fakeUserRepository{usersByID: map[int64]domain.User{user.ID: user}}
	raw := "expired-token"
	tokens := &fakeResetTokenStore{tokens: map[string]domain.ResetToken{
		security.HashToken(raw): {
			TokenHash: security.HashToken(raw),
			UserID:    user.ID,
			Email:     user.Email,
			Role:      user.Role,
			CreatedAt: testClock.Add(-2 * time.Hour),
			ExpiresAt: testClock.Add(-time.Hour),
		},
	}}
	svc := newTestResetService(t, users, tokens, &fakeSessionStore{}, &fakeEventPublisher{})

	if _, err := svc.Confirm(context.Background(), PasswordResetConfirmInput{
		Token:       raw,
		NewPassword: "C0mplex!Passphrase#2025",
	}); !errors.Is(err, ErrResetTokenExpired) {
		t.Fatalf("expected ErrResetTokenExpired, got %v", err)
	}
}

func TestPasswordResetService_Confirm_WeakPasswordRejected(t *testing.T) {
	user := activeUser(t)
	users := &fakeUserRepository{
		usersByEmail: map[string]domain.User{user.Email: user},
		usersByID:    map[int64]domain.User{user.ID: user},
	}
	tokens := &fakeResetTokenStore{}
	svc := newTestResetService(t, users, tokens, &fakeSessionStore{}, &fakeEventPublisher{})

	issued, err := svc.Request(context.Background(), PasswordResetRequestInput{Email: user.Email})
	if err != nil || issued == nil {
		t.Fatalf("Request failed: %+v %v", issued, err)
	}

	_, err = svc.Confirm(context.Background(), PasswordResetConfirmInput{
		Token:       issued.Token,
		NewPassword: "password1",
	})
	var violation *security.PasswordValidationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected a password policy violation, got %v", err)
	}
	if len(users.passwordUpdates) != 0 {
		t.Fatal("rejected password must not be stored")
	}
}

func TestPasswordResetService_Confirm_UnknownToken(t *testing.T) {
	svc := newTestResetService(t, &fakeUserRepository{}, &fakeResetTokenStore{}, &fakeSessionStore{}, &fakeEventPublisher{})

	if _, err := svc.Confirm(context.Background(), PasswordResetConfirmInput{
		Token:       "never-issued",
		NewPassword: "C0mplex!Passphrase#2025",
	}); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid, got %v", err)
	}
}
