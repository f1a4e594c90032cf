package security

import (
	"errors"
	"testing"
	"time"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
)

func sampleSession(now time.Time) domain.LocalSession {
	return domain.LocalSession{
		UserID:      42,
		AccountID:   7,
		RecordID:    1001,
		Role:        domain.RoleHR,
		DisplayName: "Rina Kasim",
		Email:       "rina.kasim@whitehat88.example",
		IssuedAt:    now,
		ExpiresAt:   now.Add(24 * time.Hour),
	}
}

func TestSessionTokenCodecRoundTrip(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	codec := NewSessionTokenCodec("test-secret").WithClock(func() time.Time { return now })
	session := sampleSession(now)

	token, err := codec.Mint(session)
	if err != nil {
		t.Fatalf("Mint returned error: %v", err)
	}

	decoded, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	if decoded.UserID != session.UserID || decoded.AccountID != session.AccountID || decoded.RecordID != session.RecordID {
		t.Fatalf("identifier mismatch: %+v", decoded)
	}
	if decoded.Role != session.Role || decoded.Email != session.Email || decoded.DisplayName != session.DisplayName {
		t.Fatalf("identity mismatch: %+v", decoded)
	}
	if !decoded.ExpiresAt.Equal(session.ExpiresAt) {
		t.Fatalf("expected expiry %v, got %v", session.ExpiresAt, decoded.ExpiresAt)
	}
}

func TestSessionTokenCodecRejectsExpired(t *testing.T) {
	issued := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	codec := NewSessionTokenCodec("test-secret").WithClock(func() time.Time { return issued })

	token, err := codec.Mint(sampleSession(issued))
	if err != nil {
		t.Fatalf("Mint returned error: %v", err)
	}

	later := issued.Add(25 * time.Hour)
	codec.WithClock(func() time.Time { return later })

	if _, err := codec.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for expired token, got %v", err)
	}

	// Logout still needs the claims out of a lapsed token.
	decoded, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode returned error for expired token: %v", err)
	}
	if decoded.RecordID != 1001 {
		t.Fatalf("expected record id preserved, got %d", decoded.RecordID)
	}
}

func TestSessionTokenCodecRejectsTampering(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	minter := NewSessionTokenCodec("secret-a").WithClock(func() time.Time { return now })
	verifier := NewSessionTokenCodec("secret-b").WithClock(func() time.Time { return now })

	token, err := minter.Mint(sampleSession(now))
	if err != nil {
		t.Fatalf("Mint returned error: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for foreign signature, got %v", err)
	}
	if _, err := verifier.Decode(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected Decode to reject foreign signature, got %v", err)
	}
}

func TestSessionTokenCodecRejectsUnknownRole(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	codec := NewSessionTokenCodec("test-secret").WithClock(func() time.Time { return now })

	session := sampleSession(now)
	session.Role = domain.Role("ghost")

	token, err := codec.Mint(session)
	if err != nil {
		t.Fatalf("Mint returned error: %v", err)
	}

	if _, err := codec.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for unknown role, got %v", err)
	}
}

func TestSessionTokenCodecRejectsGarbage(t *testing.T) {
	codec := NewSessionTokenCodec("test-secret")

	if _, err := codec.Verify("not.a.token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}
