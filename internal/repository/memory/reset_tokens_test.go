package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
	"github.com/whitehat88/recruitment-auth/internal/repository"
)

func TestResetTokenStore_SaveAndConsume(t *testing.T) {
	store := NewResetTokenStore()

	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	store.WithClock(func() time.Time { return now })

	ctx := context.Background()
	token := domain.ResetToken{
		TokenHash: "a1b2c3",
		UserID:    42,
		Email:     "dina@whitehat88.example",
		Role:      domain.RoleHR,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}

	if err := store.Save(ctx, token); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, err := store.Consume(ctx, "a1b2c3")
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if got.UserID != 42 || got.Role != domain.RoleHR {
		t.Fatalf("unexpected token: %+v", got)
	}

	if _, err := store.Consume(ctx, "a1b2c3"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second Consume, got %v", err)
	}
}

func TestResetTokenStore_PrunesExpiredEntries(t *testing.T) {
	store := NewResetTokenStore()

	base := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	current := base
	store.WithClock(func() time.Time { return current })

	ctx := context.Background()
	token := domain.ResetToken{
		TokenHash: "a1b2c3",
		UserID:    42,
		Email:     "dina@whitehat88.example",
		Role:      domain.RoleApplicant,
		CreatedAt: base,
		ExpiresAt: base.Add(time.Minute),
	}

	if err := store.Save(ctx, token); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	current = base.Add(2 * time.Minute)

	if _, err := store.Consume(ctx, "a1b2c3"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestResetTokenStore_SaveRejectsInvalidInput(t *testing.T) {
	store := NewResetTokenStore()

	now := time.Now().UTC()
	ctx := context.Background()

	if err := store.Save(ctx, domain.ResetToken{UserID: 42, ExpiresAt: now.Add(time.Hour)}); err == nil {
		t.Fatal("expected error for missing token hash")
	}
	if err := store.Save(ctx, domain.ResetToken{TokenHash: "a1b2c3", ExpiresAt: now.Add(time.Hour)}); err == nil {
		t.Fatal("expected error for missing user id")
	}
}
