package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
	"github.com/whitehat88/recruitment-auth/internal/core/port"
	"github.com/whitehat88/recruitment-auth/internal/repository"
)

// sessionTable is the table every deployed portal database has, in some
// shape. Only user_id, role and login_time can be assumed; the rest is
// discovered per process through the schema inspector.
const sessionTable = "auth_sessions"

var sessionOptionalColumns = []string{"logout_time", "last_activity", "ip_address", "user_agent", "is_active"}

// SessionRecordRepository implements port.SessionRecordStore backed by
// PostgreSQL, widening and narrowing its column sets to whatever the
// deployed auth_sessions table supports.
type SessionRecordRepository struct {
	exec      pgExecutor
	inspector port.SchemaInspector
	builder   squirrel.StatementBuilderType
}

// NewSessionRecordRepository constructs a repository backed by any executor
// that satisfies pgExecutor.
func NewSessionRecordRepository(exec pgExecutor, inspector port.SchemaInspector) *SessionRecordRepository {
	return &SessionRecordRepository{
		exec:      exec,
		inspector: inspector,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a fresh record with the guaranteed columns plus whichever
// optional ones the schema exposes, and returns the new identifier.
func (r *SessionRecordRepository) Create(ctx context.Context, record domain.SessionRecord) (int64, error) {
	caps := r.inspector.Columns(ctx, sessionTable)

	columns := []string{"user_id", "role", "login_time"}
	values := []any{record.UserID, record.Role.StorageValue(), record.LoginTime}

	if caps.Has("last_activity") {
		columns = append(columns, "last_activity")
		values = append(values, record.LoginTime)
	}
	if caps.Has("ip_address") {
		columns = append(columns, "ip_address")
		values = append(values, optionalString(record.IP))
	}
	if caps.Has("user_agent") {
		columns = append(columns, "user_agent")
		values = append(values, optionalString(record.UserAgent))
	}
	if caps.Has("is_active") {
		columns = append(columns, "is_active")
		values = append(values, true)
	}

	stmt, args, err := r.builder.
		Insert(sessionTable).
		Columns(columns...).
		Values(values...).
		Suffix("RETURNING session_id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert session record sql: %w", err)
	}

	var id int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert session record: %w", err)
	}

	return id, nil
}

// Close marks one record logged out. When the schema exposes none of the
// closing columns the update degrades to logout_time alone, matching the
// guaranteed shape of the legacy table.
func (r *SessionRecordRepository) Close(ctx context.Context, recordID int64, at time.Time) error {
	update := r.closeUpdate(ctx, at).Where(squirrel.Eq{"session_id": recordID})

	stmt, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build close session record sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("close session record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CloseAllForUser closes every open record for the user and reports how many
// rows changed. Openness is judged by is_active when available, otherwise by
// a null logout_time.
func (r *SessionRecordRepository) CloseAllForUser(ctx context.Context, userID int64, at time.Time) (int, error) {
	caps := r.inspector.Columns(ctx, sessionTable)

	update := r.closeUpdate(ctx, at).Where(squirrel.Eq{"user_id": userID})
	switch {
	case caps.Has("is_active"):
		update = update.Where(squirrel.Eq{"is_active": true})
	case caps.Has("logout_time"):
		update = update.Where("logout_time IS NULL")
	}

	stmt, args, err := update.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build close user sessions sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("close user sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *SessionRecordRepository) closeUpdate(ctx context.Context, at time.Time) squirrel.UpdateBuilder {
	caps := r.inspector.Columns(ctx, sessionTable)

	update := r.builder.Update(sessionTable)
	applied := false
	if caps.Has("logout_time") {
		update = update.Set("logout_time", at)
		applied = true
	}
	if caps.Has("is_active") {
		update = update.Set("is_active", false)
		applied = true
	}
	if caps.Has("last_activity") {
		update = update.Set("last_activity", at)
		applied = true
	}
	if !applied {
		update = update.Set("logout_time", at)
	}
	return update
}

// Touch bumps last_activity; a no-op when the column is absent.
func (r *SessionRecordRepository) Touch(ctx context.Context, recordID int64, at time.Time) error {
	if !r.inspector.Columns(ctx, sessionTable).Has("last_activity") {
		return nil
	}

	stmt, args, err := r.builder.
		Update(sessionTable).
		Set("last_activity", at).
		Where(squirrel.Eq{"session_id": recordID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch session record sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("touch session record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListActiveByUser retrieves the user's open records, newest login first.
func (r *SessionRecordRepository) ListActiveByUser(ctx context.Context, userID int64) ([]domain.SessionRecord, error) {
	caps := r.inspector.Columns(ctx, sessionTable)

	columns := []string{"session_id", "user_id", "role", "login_time"}
	present := make([]string, 0, len(sessionOptionalColumns))
	for _, column := range sessionOptionalColumns {
		if caps.Has(column) {
			columns = append(columns, column)
			present = append(present, column)
		}
	}

	query := r.builder.
		Select(columns...).
		From(sessionTable).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("login_time DESC")
	switch {
	case caps.Has("is_active"):
		query = query.Where(squirrel.Eq{"is_active": true})
	case caps.Has("logout_time"):
		query = query.Where("logout_time IS NULL")
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list session records sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query session records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.SessionRecord, 0)
	for rows.Next() {
		record, err := scanSessionRecord(rows, present)
		if err != nil {
			return nil, fmt.Errorf("scan session record: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session records: %w", err)
	}

	return records, nil
}

// scanSessionRecord scans the guaranteed columns plus the optional ones
// named in present, in that order.
func scanSessionRecord(rows pgx.Rows, present []string) (*domain.SessionRecord, error) {
	var (
		record       domain.SessionRecord
		roleValue    string
		logoutTime   sql.NullTime
		lastActivity sql.NullTime
		ip           sql.NullString
		userAgent    sql.NullString
		isActive     sql.NullBool
	)

	targets := []any{&record.ID, &record.UserID, &roleValue, &record.LoginTime}
	for _, column := range present {
		switch column {
		case "logout_time":
			targets = append(targets, &logoutTime)
		case "last_activity":
			targets = append(targets, &lastActivity)
		case "ip_address":
			targets = append(targets, &ip)
		case "user_agent":
			targets = append(targets, &userAgent)
		case "is_active":
			targets = append(targets, &isActive)
		default:
			return nil, fmt.Errorf("unexpected column %q", column)
		}
	}

	if err := rows.Scan(targets...); err != nil {
		return nil, err
	}

	record.Role = domain.RoleFromStorage(roleValue)
	record.LogoutTime = nullableTimePtr(logoutTime)
	record.LastActivity = nullableTimePtr(lastActivity)
	record.IP = nullableStringPtr(ip)
	record.UserAgent = nullableStringPtr(userAgent)
	if isActive.Valid {
		record.Active = isActive.Bool
	} else {
		record.Active = record.LogoutTime == nil
	}

	return &record, nil
}
