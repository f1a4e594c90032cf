package domain

// ColumnSet holds the column names introspection discovered for one table.
// An empty set means discovery failed or the table is missing; callers fall
// back to the guaranteed columns and must not treat emptiness as an error.
type ColumnSet map[string]struct{}

// NewColumnSet builds a set from the given column names.
func NewColumnSet(columns ...string) ColumnSet {
	set := make(ColumnSet, len(columns))
	for _, column := range columns {
		set[column] = struct{}{}
	}
	return set
}

// Has reports whether the table exposes the named column.
func (s ColumnSet) Has(column string) bool {
	_, ok := s[column]
	return ok
}

// Names returns the column names in unspecified order.
func (s ColumnSet) Names() []string {
	names := make([]string, 0, len(s))
	for column := range s {
		names = append(names, column)
	}
	return names
}
