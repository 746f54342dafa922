//go:build sqlite_cgo

package sqlstore

// CGO SQLite. Build command:
//   CGO_ENABLED=1 go build -tags sqlite_cgo ./...

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

const (
	sqliteDriverName = "sqlite3"

	// BuildMode describes the SQLite driver compiled in.
	BuildMode = "cgo"
)

func sqliteUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
