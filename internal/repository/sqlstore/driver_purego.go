//go:build !sqlite_cgo

package sqlstore

// Pure Go SQLite, no C toolchain needed. Build with -tags sqlite_cgo to switch to
// github.com/mattn/go-sqlite3.

import (
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	sqliteDriverName = "sqlite"

	// BuildMode describes the SQLite driver compiled in.
	BuildMode = "purego"
)

func sqliteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
