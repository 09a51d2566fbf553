package main

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/tasktrail/internal/config"
	"github.com/persistorai/tasktrail/internal/db"
	"github.com/persistorai/tasktrail/internal/dbpool"
	"github.com/persistorai/tasktrail/internal/domain"
	"github.com/persistorai/tasktrail/internal/store"
	"github.com/persistorai/tasktrail/internal/store/memory"
	"github.com/persistorai/tasktrail/internal/store/postgres"
	"github.com/persistorai/tasktrail/internal/store/sqlite"
)

// openedBackend is a ready-to-use store plus the wiring that depends on which
// backend was chosen.
type openedBackend struct {
	backend       domain.Backend
	schemaVersion int
	// notify starts delivery of committed events to pub when the backend
	// produces them itself. Nil for in-process delivery.
	notify func(ctx context.Context, pub db.Publisher) error
}

func openBackend(ctx context.Context, log *logrus.Logger, cfg *config.Config) (*openedBackend, error) {
	base := store.NewBase(log, store.NewClock())

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), cfg.DBMaxConns)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}

		if err := db.MigratePostgres(ctx, pool, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrating postgres: %w", err)
		}

		b, err := postgres.Open(ctx, base, pool)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}

		return &openedBackend{
			backend:       b,
			schemaVersion: db.SchemaVersion(goose.DialectPostgres),
			notify: func(ctx context.Context, pub db.Publisher) error {
				return db.NewNotifyBridge(log, pool, pub).Start(ctx)
			},
		}, nil

	case config.BackendSQLite:
		b, err := sqlite.Open(ctx, base, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}

		return &openedBackend{backend: b, schemaVersion: db.SchemaVersion(goose.DialectSQLite3)}, nil

	case config.BackendMemory:
		log.Warn("using in-memory store; tasks are lost on exit")

		return &openedBackend{backend: memory.New(base)}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
