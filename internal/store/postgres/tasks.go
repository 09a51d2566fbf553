package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/persistorai/tasktrail/internal/domain"
	"github.com/persistorai/tasktrail/internal/models"
	"github.com/persistorai/tasktrail/internal/policy"
	"github.com/persistorai/tasktrail/internal/store"
)

var _ domain.TaskStore = (*TaskStore)(nil)

// taskColumns lists the columns selected for task queries.
const taskColumns = `id, title, description, completed, priority, user_id`

// TaskStore runs task queries inside one scope's transaction.
type TaskStore struct {
	s *scope
}

// scanTask scans a single row into a models.Task.
func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	var priority string

	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &priority, &t.UserID); err != nil {
		return nil, err
	}
	t.Priority = models.Priority(priority)

	return &t, nil
}

// Create inserts a task owned by owner.
func (ts *TaskStore) Create(ctx context.Context, owner string, req models.CreateTaskRequest) (*models.Task, error) {
	if err := ts.s.writable(); err != nil {
		return nil, err
	}

	if owner == "" {
		return nil, models.ErrMissingActor
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := store.WithTimeout(ctx)
	defer cancel()

	t, err := scanTask(ts.s.tx.QueryRow(ctx, `
		INSERT INTO tasks (title, description, completed, priority, user_id)
		VALUES ($1, $2, FALSE, $3, $4)
		RETURNING `+taskColumns,
		req.Title, req.Description, string(req.Priority), owner,
	))
	if err != nil {
		return nil, models.StorageError("inserting task", err)
	}

	return t, nil
}

// Update locks the task row, checks ownership and writes the patched fields.
func (ts *TaskStore) Update(ctx context.Context, taskID int64, owner string, patch models.UpdateTaskRequest) (*models.Task, error) {
	if err := ts.s.writable(); err != nil {
		return nil, err
	}

	if err := patch.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := store.WithTimeout(ctx)
	defer cancel()

	t, err := ts.loadOwned(ctx, taskID, owner, true)
	if err != nil {
		return nil, err
	}

	patch.Apply(t)

	_, err = ts.s.tx.Exec(ctx, `
		UPDATE tasks SET title = $2, description = $3, completed = $4, priority = $5
		WHERE id = $1`,
		t.ID, t.Title, t.Description, t.Completed, string(t.Priority),
	)
	if err != nil {
		return nil, models.StorageError("updating task", err)
	}

	return t, nil
}

// Delete locks the task row, checks ownership and removes it.
func (ts *TaskStore) Delete(ctx context.Context, taskID int64, owner string) error {
	if err := ts.s.writable(); err != nil {
		return err
	}

	ctx, cancel := store.WithTimeout(ctx)
	defer cancel()

	if _, err := ts.loadOwned(ctx, taskID, owner, true); err != nil {
		return err
	}

	if _, err := ts.s.tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, taskID); err != nil {
		return models.StorageError("deleting task", err)
	}

	return nil
}

// Get returns the task if owner may read it.
func (ts *TaskStore) Get(ctx context.Context, taskID int64, owner string) (*models.Task, error) {
	ctx, cancel := store.WithTimeout(ctx)
	defer cancel()

	return ts.loadOwned(ctx, taskID, owner, false)
}

// List returns every task owned by owner, ordered by id.
func (ts *TaskStore) List(ctx context.Context, owner string) ([]models.Task, error) {
	ctx, cancel := store.WithTimeout(ctx)
	defer cancel()

	rows, err := ts.s.tx.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY id`, owner)
	if err != nil {
		return nil, models.StorageError("listing tasks", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, models.StorageError("scanning task", err)
		}
		tasks = append(tasks, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, models.StorageError("iterating tasks", err)
	}

	return tasks, nil
}

// loadOwned fetches a task, optionally taking a row lock, and authorizes owner.
func (ts *TaskStore) loadOwned(ctx context.Context, taskID int64, owner string, lock bool) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	t, err := scanTask(ts.s.tx.QueryRow(ctx, query, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrTaskNotFound
		}

		return nil, models.StorageError(fmt.Sprintf("loading task %d", taskID), err)
	}

	if err := policy.Authorize(owner, t.UserID); err != nil {
		return nil, err
	}

	return t, nil
}
