package sqldb

import "database/sql"

// Row is the result of QueryRow. Unlike *sql.Row it can be built from an
// error alone, so callers that fail before reaching the database still
// hand back something scannable.
type Row struct {
	row *sql.Row
	err error
}

// ErrRow returns a Row whose Scan reports err.
func ErrRow(err error) *Row {
	return &Row{err: err}
}

// Scan copies the columns of the matched row into dest.
func (r *Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return r.row.Scan(dest...)
}

// Err reports the deferred error without scanning.
func (r *Row) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.row.Err()
}
