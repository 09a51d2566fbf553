package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func scanTask(scan func(dest ...any) error) (*models.Task, error) {
	var t models.Task
	var description sql.NullString
	var priority string

	if err := scan(&t.ID, &t.Title, &description, &t.Completed, &priority, &t.UserID); err != nil {
		return nil, err
	}

	if description.Valid {
		t.Description = &description.String
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

	t, err := scanTask(ts.s.tx.QueryRowContext(ctx, `
		INSERT INTO tasks (title, description, completed, priority, user_id)
		VALUES (?, ?, 0, ?, ?)
		RETURNING `+taskColumns,
		req.Title, req.Description, string(req.Priority), owner,
	).Scan)
	if err != nil {
		return nil, models.StorageError("inserting task", err)
	}

	return t, nil
}

// Update checks ownership and writes the patched fields. The surrounding
// IMMEDIATE transaction already holds the database write lock.
func (ts *TaskStore) Update(ctx context.Context, taskID int64, owner string, patch models.UpdateTaskRequest) (*models.Task, error) {
	if err := ts.s.writable(); err != nil {
		return nil, err
	}

	if err := patch.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := store.WithTimeout(ctx)
	defer cancel()

	t, err := ts.loadOwned(ctx, taskID, owner)
	if err != nil {
		return nil, err
	}

	patch.Apply(t)

	_, err = ts.s.tx.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, completed = ?, priority = ?
		WHERE id = ?`,
		t.Title, t.Description, t.Completed, string(t.Priority), t.ID,
	)
	if err != nil {
		return nil, models.StorageError("updating task", err)
	}

	return t, nil
}

// Delete checks ownership and removes the task.
func (ts *TaskStore) Delete(ctx context.Context, taskID int64, owner string) error {
	if err := ts.s.writable(); err != nil {
		return err
	}

	ctx, cancel := store.WithTimeout(ctx)
	defer cancel()

	if _, err := ts.loadOwned(ctx, taskID, owner); err != nil {
		return err
	}

	if _, err := ts.s.tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, taskID); err != nil {
		return models.StorageError("deleting task", err)
	}

	return nil
}

// Get returns the task if owner may read it.
func (ts *TaskStore) Get(ctx context.Context, taskID int64, owner string) (*models.Task, error) {
	ctx, cancel := store.WithTimeout(ctx)
	defer cancel()

	return ts.loadOwned(ctx, taskID, owner)
}

// List returns every task owned by owner, ordered by id.
func (ts *TaskStore) List(ctx context.Context, owner string) ([]models.Task, error) {
	ctx, cancel := store.WithTimeout(ctx)
	defer cancel()

	rows, err := ts.s.tx.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY id`, owner)
	if err != nil {
		return nil, models.StorageError("listing tasks", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows.Scan)
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

func (ts *TaskStore) loadOwned(ctx context.Context, taskID int64, owner string) (*models.Task, error) {
	t, err := scanTask(ts.s.tx.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrTaskNotFound
		}

		return nil, models.StorageError(fmt.Sprintf("loading task %d", taskID), err)
	}

	if err := policy.Authorize(owner, t.UserID); err != nil {
		return nil, err
	}

	return t, nil
}
