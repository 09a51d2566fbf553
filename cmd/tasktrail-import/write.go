package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/tasktrail/internal/db"
	"github.com/persistorai/tasktrail/internal/dbpool"
	"github.com/persistorai/tasktrail/internal/models"
)

const batchSize = 100

// writeAll migrates the target schema and inserts tasks and logs in one
// transaction, then verifies row counts before committing.
func writeAll(ctx context.Context, databaseURL string, tasks []models.Task, logs []models.AuditEntry, r *report, log *logrus.Logger) error {
	pool, err := dbpool.NewPool(ctx, databaseURL, 2)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := db.MigratePostgres(ctx, pool, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit.

	r.TasksInserted, err = insertTasks(ctx, tx, tasks)
	if err != nil {
		return fmt.Errorf("insert tasks: %w", err)
	}
	log.WithField("count", r.TasksInserted).Info("inserted tasks")

	r.LogsInserted, err = insertLogs(ctx, tx, logs)
	if err != nil {
		return fmt.Errorf("insert task logs: %w", err)
	}
	log.WithField("count", r.LogsInserted).Info("inserted task logs")

	for _, table := range []string{"tasks", "task_logs"} {
		if err := resetSequence(ctx, tx, table); err != nil {
			return fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}

	if r.TasksVerified, err = countImported(ctx, tx, "tasks", taskIDs(tasks)); err != nil {
		return fmt.Errorf("verify tasks: %w", err)
	}
	if r.LogsVerified, err = countImported(ctx, tx, "task_logs", logIDs(logs)); err != nil {
		return fmt.Errorf("verify task logs: %w", err)
	}
	if r.TasksVerified != len(tasks) || r.LogsVerified != len(logs) {
		return fmt.Errorf("verification mismatch: tasks %d/%d, logs %d/%d",
			r.TasksVerified, len(tasks), r.LogsVerified, len(logs))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Info("transaction committed")
	return nil
}

// insertTasks writes tasks in batches. Ids that already exist are left
// untouched and are not counted as inserted.
func insertTasks(ctx context.Context, tx pgx.Tx, tasks []models.Task) (int, error) {
	inserted := 0
	for i := 0; i < len(tasks); i += batchSize {
		end := min(i+batchSize, len(tasks))
		batch := &pgx.Batch{}
		for _, t := range tasks[i:end] {
			batch.Queue(
				`INSERT INTO tasks (id, title, description, completed, priority, user_id)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (id) DO NOTHING`,
				t.ID, t.Title, t.Description, t.Completed, string(t.Priority), t.UserID)
		}
		n, err := execBatch(ctx, tx, batch)
		if err != nil {
			return inserted, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		inserted += n
	}
	return inserted, nil
}

func insertLogs(ctx context.Context, tx pgx.Tx, logs []models.AuditEntry) (int, error) {
	inserted := 0
	for i := 0; i < len(logs); i += batchSize {
		end := min(i+batchSize, len(logs))
		batch := &pgx.Batch{}
		for _, e := range logs[i:end] {
			batch.Queue(
				`INSERT INTO task_logs (id, task_id, action, timestamp, user_id)
				 VALUES ($1, $2, $3, $4, $5)
				 ON CONFLICT (id) DO NOTHING`,
				e.ID, e.TaskID, string(e.Action), e.Timestamp, e.UserID)
		}
		n, err := execBatch(ctx, tx, batch)
		if err != nil {
			return inserted, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		inserted += n
	}
	return inserted, nil
}

func execBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) (int, error) {
	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	affected := 0
	for range batch.Len() {
		tag, err := results.Exec()
		if err != nil {
			return affected, err
		}
		affected += int(tag.RowsAffected())
	}
	return affected, results.Close()
}

// allowedTables is the set of table names the sequence and count helpers
// may interpolate.
var allowedTables = map[string]bool{
	"tasks":     true,
	"task_logs": true,
}

// resetSequence moves the id sequence of table past its largest id so new
// rows never collide with imported ones.
func resetSequence(ctx context.Context, tx pgx.Tx, table string) error {
	if !allowedTables[table] {
		return fmt.Errorf("disallowed table name: %s", table)
	}
	sanitized := pgx.Identifier{table}.Sanitize()
	_, err := tx.Exec(ctx, fmt.Sprintf(
		`SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM %s`,
		table, sanitized))
	return err
}

// countImported counts how many of ids are present in table.
func countImported(ctx context.Context, tx pgx.Tx, table string, ids []int64) (int, error) {
	if !allowedTables[table] {
		return 0, fmt.Errorf("disallowed table name: %s", table)
	}
	var count int
	sanitized := pgx.Identifier{table}.Sanitize()
	err := tx.QueryRow(ctx,
		fmt.Sprintf("SELECT count(*) FROM %s WHERE id = ANY($1)", sanitized), ids,
	).Scan(&count)
	return count, err
}

func taskIDs(tasks []models.Task) []int64 {
	ids := make([]int64, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
	}
	return ids
}

func logIDs(logs []models.AuditEntry) []int64 {
	ids := make([]int64, len(logs))
	for i := range logs {
		ids[i] = logs[i].ID
	}
	return ids
}
