package postgres_test

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/tasktrail/internal/db"
	"github.com/persistorai/tasktrail/internal/dbpool"
	"github.com/persistorai/tasktrail/internal/store"
	"github.com/persistorai/tasktrail/internal/store/postgres"
	"github.com/persistorai/tasktrail/internal/store/storetest"
)

// openBackend connects to TEST_DATABASE_URL, applies migrations and returns a
// backend. Tests are skipped when the variable is unset.
func openBackend(t *testing.T) *postgres.Backend {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	log := logrus.New()
	log.SetOutput(io.Discard)

	pool, err := dbpool.NewPool(ctx, dbURL, 4)
	if err != nil {
		t.Fatalf("connecting to test DB: %v", err)
	}

	if err := db.MigratePostgres(ctx, pool, log); err != nil {
		pool.Close()
		t.Fatalf("migrating test DB: %v", err)
	}

	b, err := postgres.Open(ctx, store.NewBase(log, nil), pool)
	if err != nil {
		pool.Close()
		t.Fatalf("opening backend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	return b
}

func TestContract(t *testing.T) {
	storetest.Run(t, openBackend(t))
}

func TestPing(t *testing.T) {
	b := openBackend(t)

	if err := b.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
