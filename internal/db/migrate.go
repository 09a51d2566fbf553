// Migration runner using goose (github.com/pressly/goose/v3).
//
// Each backend ships its own dialect-specific migrations under
// internal/db/migrations/<dialect>/, embedded via //go:embed. RunMigrations
// applies everything pending on startup; goose tracks progress in its
// goose_db_version table.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/tasktrail/internal/db/migrations"
	"github.com/persistorai/tasktrail/internal/dbpool"
)

// MigratePostgres applies the PostgreSQL migrations to the database behind pool.
func MigratePostgres(ctx context.Context, pool *dbpool.Pool, log *logrus.Logger) error {
	// goose requires a *sql.DB, so open one through the pgx stdlib driver
	// using the pool's connection string.
	sqlDB, err := sql.Open("pgx", pool.ConnString())
	if err != nil {
		return fmt.Errorf("opening sql.DB for migrations: %w", err)
	}
	defer sqlDB.Close()

	return RunMigrations(ctx, sqlDB, goose.DialectPostgres, migrations.Postgres(), log)
}

// MigrateSQLite applies the SQLite migrations to sqlDB.
func MigrateSQLite(ctx context.Context, sqlDB *sql.DB, log *logrus.Logger) error {
	return RunMigrations(ctx, sqlDB, goose.DialectSQLite3, migrations.SQLite(), log)
}

// RunMigrations applies all pending migrations from fsys using dialect.
// The fsys should contain goose-annotated SQL files (e.g. "001_tasks.sql").
func RunMigrations(ctx context.Context, sqlDB *sql.DB, dialect goose.Dialect, fsys fs.FS, log *logrus.Logger) error {
	provider, err := goose.NewProvider(dialect, sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("creating goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", r.Source.Version, r.Source.Path, r.Error)
		}

		log.WithFields(logrus.Fields{
			"dialect":  dialect,
			"version":  r.Source.Version,
			"file":     r.Source.Path,
			"duration": r.Duration,
		}).Info("migration applied")
	}

	if len(results) == 0 {
		log.Debug("all migrations already applied")
	}

	return nil
}
