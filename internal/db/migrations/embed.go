// Package migrations embeds the goose SQL migrations for each supported dialect.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Postgres returns the migrations for the PostgreSQL backend.
func Postgres() fs.FS { return sub("postgres") }

// SQLite returns the migrations for the SQLite backend.
func SQLite() fs.FS { return sub("sqlite") }

func sub(dir string) fs.FS {
	fsys, err := fs.Sub(files, dir)
	if err != nil {
		panic("migrations: " + err.Error()) // dir is a compile-time constant.
	}

	return fsys
}
