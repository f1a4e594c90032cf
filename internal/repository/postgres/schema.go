package postgres

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
)

// SchemaInspector discovers table columns through information_schema. The
// deployed portal databases differ in which optional auth_sessions columns
// they carry, so every dynamic statement starts here.
//
// Successful lookups are cached for the process lifetime. Failures and empty
// results are not cached: a transient outage must not pin an empty set, and
// a table created after startup is picked up on the next call.
type SchemaInspector struct {
	exec   pgExecutor
	logger *zap.Logger
	cache  sync.Map
}

// NewSchemaInspector builds an inspector over the supplied executor.
func NewSchemaInspector(exec pgExecutor, logger *zap.Logger) *SchemaInspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaInspector{exec: exec, logger: logger}
}

// Columns reports the column set of the named table. Discovery failure
// yields an empty set, never an error; callers degrade to their guaranteed
// columns.
func (i *SchemaInspector) Columns(ctx context.Context, table string) domain.ColumnSet {
	if cached, ok := i.cache.Load(table); ok {
		return cached.(domain.ColumnSet)
	}

	const stmt = `SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1`

	rows, err := i.exec.Query(ctx, stmt, table)
	if err != nil {
		i.logger.Warn("column discovery failed", zap.String("table", table), zap.Error(err))
		return domain.ColumnSet{}
	}
	defer rows.Close()

	set := domain.ColumnSet{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			i.logger.Warn("column discovery scan failed", zap.String("table", table), zap.Error(err))
			return domain.ColumnSet{}
		}
		set[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		i.logger.Warn("column discovery failed", zap.String("table", table), zap.Error(err))
		return domain.ColumnSet{}
	}

	if len(set) == 0 {
		i.logger.Warn("table has no discoverable columns", zap.String("table", table))
		return set
	}

	actual, _ := i.cache.LoadOrStore(table, set)
	return actual.(domain.ColumnSet)
}
