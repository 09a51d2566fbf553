// Package sqlite implements domain.Backend on an embedded SQLite database.
//
// Two handles share one WAL-mode file: a single-connection writer whose
// transactions start with BEGIN IMMEDIATE, and a reader pool restricted to
// queries. Writers are therefore fully serialized while readers keep seeing
// the last committed snapshot.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // register the sqlite3 driver

	"github.com/persistorai/tasktrail/internal/db"
	"github.com/persistorai/tasktrail/internal/domain"
	"github.com/persistorai/tasktrail/internal/models"
	"github.com/persistorai/tasktrail/internal/store"
)

// Compile-time check: *Backend must satisfy domain.Backend.
var _ domain.Backend = (*Backend)(nil)

// maxReaders bounds the read connection pool.
const maxReaders = 4

// Backend opens database/sql transactions against a SQLite file.
type Backend struct {
	store.Base
	writer *sql.DB
	reader *sql.DB
}

// dsn builds a mattn/go-sqlite3 connection string. Pragmas given as DSN
// parameters are applied to every pooled connection. WAL mode persists in the
// file, so only the writer sets it.
func dsn(path string, write bool) string {
	q := url.Values{}
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "on")

	if write {
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
		q.Set("_txlock", "immediate")
	} else {
		q.Set("_query_only", "true")
	}

	return "file:" + path + "?" + q.Encode()
}

// Open creates or opens the database at path and applies pending migrations.
func Open(ctx context.Context, base store.Base, path string) (*Backend, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	writer, err := sql.Open("sqlite3", dsn(path, true))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite writer: %w", err)
	}

	// SQLite allows one writer at a time; a single connection avoids SQLITE_BUSY
	// between our own writers.
	writer.SetMaxOpenConns(1)
	writer.SetMaxIdleConns(1)

	if err := writer.PingContext(ctx); err != nil {
		writer.Close()

		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}

	b := &Backend{Base: store.NewBase(base.Log, base.Clock), writer: writer}

	if err := db.MigrateSQLite(ctx, writer, b.Log); err != nil {
		writer.Close()

		return nil, err
	}

	reader, err := sql.Open("sqlite3", dsn(path, false))
	if err != nil {
		writer.Close()

		return nil, fmt.Errorf("opening sqlite reader: %w", err)
	}
	reader.SetMaxOpenConns(maxReaders)
	b.reader = reader

	if err := b.seedClock(ctx); err != nil {
		b.Close()

		return nil, err
	}

	return b, nil
}

// seedClock keeps audit timestamps monotonic across restarts.
func (b *Backend) seedClock(ctx context.Context) error {
	ctx, cancel := store.WithTimeout(ctx)
	defer cancel()

	var latest sql.NullInt64
	if err := b.reader.QueryRowContext(ctx, `SELECT MAX(timestamp) FROM task_logs`).Scan(&latest); err != nil {
		return fmt.Errorf("reading latest audit timestamp: %w", err)
	}

	if latest.Valid {
		b.Clock.Observe(time.UnixMicro(latest.Int64))
	}

	return nil
}

// Begin opens a BEGIN IMMEDIATE transaction on the writer.
func (b *Backend) Begin(ctx context.Context) (domain.Scope, error) {
	tx, err := b.writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, models.StorageError("beginning transaction", err)
	}

	return &scope{Base: b.Base, tx: tx}, nil
}

// BeginRead opens a deferred read transaction on the reader pool.
func (b *Backend) BeginRead(ctx context.Context) (domain.Scope, error) {
	tx, err := b.reader.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, models.StorageError("beginning read", err)
	}

	return &scope{Base: b.Base, tx: tx, readOnly: true}, nil
}

// Ping checks both handles.
func (b *Backend) Ping(ctx context.Context) error {
	if err := b.writer.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging sqlite writer: %w", err)
	}

	if err := b.reader.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging sqlite reader: %w", err)
	}

	return nil
}

// Close closes both handles.
func (b *Backend) Close() error {
	var errs []error

	if b.reader != nil {
		errs = append(errs, b.reader.Close())
	}

	if b.writer != nil {
		errs = append(errs, b.writer.Close())
	}

	return errors.Join(errs...)
}

type scope struct {
	store.Base
	tx       *sql.Tx
	readOnly bool
	done     bool
}

func (s *scope) Tasks() domain.TaskStore { return &TaskStore{s} }

func (s *scope) Audit() domain.AuditRecorder { return &AuditRecorder{s} }

func (s *scope) Commit(context.Context) error {
	s.done = true

	if err := s.tx.Commit(); err != nil {
		return models.StorageError("committing", err)
	}

	return nil
}

func (s *scope) Abort(context.Context) error {
	if s.done {
		return nil
	}

	s.done = true

	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
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
