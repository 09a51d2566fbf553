// Package postgres implements domain.Backend on PostgreSQL via pgx.
//
// Read-write scopes run at READ COMMITTED; every update or delete first takes
// a row lock with SELECT ... FOR UPDATE, so two mutations of the same task
// serialize while mutations of different tasks proceed in parallel.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/persistorai/tasktrail/internal/dbpool"
	"github.com/persistorai/tasktrail/internal/domain"
	"github.com/persistorai/tasktrail/internal/models"
	"github.com/persistorai/tasktrail/internal/store"
)

// Compile-time check: *Backend must satisfy domain.Backend.
var _ domain.Backend = (*Backend)(nil)

// Backend opens pgx transactions against a pool.
type Backend struct {
	store.Base
	pool *dbpool.Pool
}

// Open creates a Backend and seeds the clock from the newest audit entry so
// timestamps stay monotonic across restarts.
func Open(ctx context.Context, base store.Base, pool *dbpool.Pool) (*Backend, error) {
	b := &Backend{Base: store.NewBase(base.Log, base.Clock), pool: pool}

	ctx, cancel := store.WithTimeout(ctx)
	defer cancel()

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning clock seed: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only transaction.

	var latest *time.Time
	if err := tx.QueryRow(ctx, `SELECT MAX(timestamp) FROM task_logs`).Scan(&latest); err != nil {
		return nil, fmt.Errorf("reading latest audit timestamp: %w", err)
	}

	if latest != nil {
		b.Clock.Observe(*latest)
	}

	return b, nil
}

// Begin opens a READ COMMITTED read-write transaction.
func (b *Backend) Begin(ctx context.Context) (domain.Scope, error) {
	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, models.StorageError("beginning transaction", err)
	}

	return &scope{Base: b.Base, tx: tx}, nil
}

// BeginRead opens a read-only REPEATABLE READ transaction, so every read in
// the scope sees one committed snapshot.
func (b *Backend) BeginRead(ctx context.Context) (domain.Scope, error) {
	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, models.StorageError("beginning read", err)
	}

	return &scope{Base: b.Base, tx: tx, readOnly: true}, nil
}

// Ping runs a trivial query against the pool.
func (b *Backend) Ping(ctx context.Context) error {
	return b.pool.HealthCheck(ctx)
}

// Close releases the pool.
func (b *Backend) Close() error {
	b.pool.Close()

	return nil
}

type scope struct {
	store.Base
	tx       pgx.Tx
	readOnly bool
	done     bool
}

func (s *scope) Tasks() domain.TaskStore { return &TaskStore{s} }

func (s *scope) Audit() domain.AuditRecorder { return &AuditRecorder{s} }

func (s *scope) Commit(ctx context.Context) error {
	s.done = true

	if err := s.tx.Commit(ctx); err != nil {
		return models.StorageError("committing", err)
	}

	return nil
}

func (s *scope) Abort(ctx context.Context) error {
	if s.done {
		return nil
	}

	s.done = true

	if err := s.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return models.StorageError("rolling back", err)
	}

	return nil
}

func (s *scope) writable() error {
	if s.readOnly {
		return models.StorageError("using scope", store.ErrReadOnly)
	}

	return nil
}
