package db

import (
	"io/fs"

	"github.com/pressly/goose/v3"

	"github.com/persistorai/tasktrail/internal/db/migrations"
)

// SchemaVersion returns the number of embedded migration files for dialect,
// which equals the schema version the binary expects. Reported by /ready.
func SchemaVersion(dialect goose.Dialect) int {
	var fsys fs.FS

	switch dialect {
	case goose.DialectPostgres:
		fsys = migrations.Postgres()
	case goose.DialectSQLite3:
		fsys = migrations.SQLite()
	default:
		return 0
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return 0
	}

	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			count++
		}
	}

	return count
}
