package repositories

import (
	"database/sql"
	"fmt"
)

// ensureRowsAffected returns an error when an UPDATE touched no rows.
func ensureRowsAffected(res sql.Result, notFoundMsg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return fmt.Errorf("%s", notFoundMsg)
	}
	return nil
}

// nullifyEmpty returns nil for an empty string so the column stays NULL.
func nullifyEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
