package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
	"github.com/whitehat88/recruitment-auth/internal/core/port"
	"github.com/whitehat88/recruitment-auth/internal/repository"
)

// UserRepository implements port.UserRepository using PostgreSQL. Bookkeeping
// writes go through the schema inspector so older portal databases without
// last_login/last_logout columns keep working unchanged.
type UserRepository struct {
	exec      pgExecutor
	inspector port.SchemaInspector
	builder   squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewUserRepository(exec pgExecutor, inspector port.SchemaInspector) *UserRepository {
	return &UserRepository{
		exec:      exec,
		inspector: inspector,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByEmail retrieves the authoritative user row by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"email": email})
}

// GetByID retrieves the authoritative user row by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"user_id": id})
}

func (r *UserRepository) getBy(ctx context.Context, pred squirrel.Eq) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select("user_id", "email", "password_hash", "user_type", "is_active").
		From("users").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	var (
		user     domain.User
		userType string
	)
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&userType,
		&user.IsActive,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}

	user.Role = domain.RoleFromStorage(userType)
	return &user, nil
}

// GetAccount resolves the profile row backing the user. Admin and HR
// accounts live in admins, applicants in applicants.
func (r *UserRepository) GetAccount(ctx context.Context, userID int64, role domain.Role) (*domain.Account, error) {
	table, idColumn, ok := profileTable(role)
	if !ok {
		return nil, repository.ErrNotFound
	}

	stmt, args, err := r.builder.
		Select(idColumn, "full_name").
		From(table).
		Where(squirrel.Eq{"user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	account := domain.Account{UserID: userID}
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&account.ID, &account.DisplayName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select account: %w", err)
	}

	return &account, nil
}

// RecordLogin bumps last_login on users and the matching profile table.
func (r *UserRepository) RecordLogin(ctx context.Context, userID, accountID int64, role domain.Role, at time.Time) error {
	return r.recordTimestamp(ctx, userID, accountID, role, "last_login", at)
}

// RecordLogout bumps last_logout on users and the matching profile table.
func (r *UserRepository) RecordLogout(ctx context.Context, userID, accountID int64, role domain.Role, at time.Time) error {
	return r.recordTimestamp(ctx, userID, accountID, role, "last_logout", at)
}

func (r *UserRepository) recordTimestamp(ctx context.Context, userID, accountID int64, role domain.Role, column string, at time.Time) error {
	if err := r.bumpColumn(ctx, "users", "user_id", userID, column, at); err != nil {
		return err
	}

	if accountID == 0 {
		return nil
	}
	table, idColumn, ok := profileTable(role)
	if !ok {
		return nil
	}
	return r.bumpColumn(ctx, table, idColumn, accountID, column, at)
}

func (r *UserRepository) bumpColumn(ctx context.Context, table, pkColumn string, pkValue int64, column string, at time.Time) error {
	if !r.inspector.Columns(ctx, table).Has(column) {
		return nil
	}

	stmt, args, err := r.builder.
		Update(table).
		Set(column, at).
		Where(squirrel.Eq{pkColumn: pkValue}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update %s.%s sql: %w", table, column, err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("update %s.%s: %w", table, column, err)
	}
	return nil
}

// UpdatePassword replaces the stored hash and, when the schema has it, bumps
// password_change_at.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string, changedAt time.Time) error {
	update := r.builder.
		Update("users").
		Set("password_hash", passwordHash).
		Where(squirrel.Eq{"user_id": userID})

	if r.inspector.Columns(ctx, "users").Has("password_change_at") {
		update = update.Set("password_change_at", changedAt)
	}

	stmt, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func profileTable(role domain.Role) (table, idColumn string, ok bool) {
	switch role {
	case domain.RoleAdmin, domain.RoleHR:
		return "admins", "admin_id", true
	case domain.RoleApplicant:
		return "applicants", "applicant_id", true
	}
	return "", "", false
}
