package storage

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrDuplicate is returned when a UNIQUE constraint (token, abid, username) rejects a row.
	ErrDuplicate = errors.New("resource already exists")

	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrUnknownOwner is returned when a row references a user that does not exist.
	ErrUnknownOwner = errors.New("referenced user does not exist")

	// ErrConstraint is returned when a CHECK constraint rejects a row.
	ErrConstraint = errors.New("value violates a storage constraint")
)

// classify maps SQLite constraint failures to the package's sentinel errors,
// keeping the driver message that names the constraint. Other errors are
// returned unchanged.
func classify(err error) error {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %v", ErrUnknownOwner, err)
	case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	}

	// Without extended result codes only the primary code is set.
	if sqliteErr.Code()&0xFF == sqlite3.SQLITE_CONSTRAINT {
		msg := sqliteErr.Error()
		switch {
		case strings.Contains(msg, "UNIQUE"):
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		case strings.Contains(msg, "FOREIGN KEY"):
			return fmt.Errorf("%w: %v", ErrUnknownOwner, err)
		default:
			return fmt.Errorf("%w: %v", ErrConstraint, err)
		}
	}
	return err
}
