// Package service provides business logic between API handlers and the task backends.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/tasktrail/internal/domain"
	"github.com/persistorai/tasktrail/internal/metrics"
	"github.com/persistorai/tasktrail/internal/models"
)

// DefaultTxTimeout bounds a mutation whose caller supplied no deadline.
const DefaultTxTimeout = 5 * time.Second

// Backend is an alias for the canonical domain.Backend interface.
type Backend = domain.Backend

// EventEnqueuer accepts committed task events for asynchronous delivery.
type EventEnqueuer interface {
	Enqueue(event models.TaskEvent)
}

// Coordinator pairs every task mutation with exactly one audit entry.
// The store operation, the audit append and the commit run in a single
// scope; any failure aborts the scope so neither side becomes visible.
type Coordinator struct {
	backend   Backend
	events    EventEnqueuer
	log       *logrus.Logger
	txTimeout time.Duration
}

// NewCoordinator creates a Coordinator. events may be nil when change
// notifications are delivered another way (Postgres LISTEN/NOTIFY) or not at all.
// A non-positive txTimeout selects DefaultTxTimeout.
func NewCoordinator(backend Backend, events EventEnqueuer, log *logrus.Logger, txTimeout time.Duration) *Coordinator {
	if txTimeout <= 0 {
		txTimeout = DefaultTxTimeout
	}

	return &Coordinator{backend: backend, events: events, log: log, txTimeout: txTimeout}
}

// mutation runs one task store operation and reports the affected task id.
// task is nil for deletions.
type mutation func(ctx context.Context, tasks domain.TaskStore) (taskID int64, task *models.Task, err error)

// CreateTask creates a task owned by actor and records a create entry.
func (c *Coordinator) CreateTask(ctx context.Context, actor string, req models.CreateTaskRequest) (*models.Task, error) {
	return c.run(ctx, models.ActionCreate, actor, func(ctx context.Context, tasks domain.TaskStore) (int64, *models.Task, error) {
		task, err := tasks.Create(ctx, actor, req)
		if err != nil {
			return 0, nil, err
		}

		return task.ID, task, nil
	})
}

// UpdateTask applies patch to the actor's task and records an update entry.
func (c *Coordinator) UpdateTask(ctx context.Context, actor string, taskID int64, patch models.UpdateTaskRequest) (*models.Task, error) {
	return c.run(ctx, models.ActionUpdate, actor, func(ctx context.Context, tasks domain.TaskStore) (int64, *models.Task, error) {
		task, err := tasks.Update(ctx, taskID, actor, patch)
		if err != nil {
			return 0, nil, err
		}

		return task.ID, task, nil
	})
}

// DeleteTask removes the actor's task and records a delete entry.
func (c *Coordinator) DeleteTask(ctx context.Context, actor string, taskID int64) error {
	_, err := c.run(ctx, models.ActionDelete, actor, func(ctx context.Context, tasks domain.TaskStore) (int64, *models.Task, error) {
		if err := tasks.Delete(ctx, taskID, actor); err != nil {
			return 0, nil, err
		}

		return taskID, nil, nil
	})

	return err
}

func (c *Coordinator) run(ctx context.Context, action models.Action, actor string, op mutation) (task *models.Task, err error) {
	start := time.Now()
	defer func() {
		metrics.MutationDuration.WithLabelValues(string(action)).Observe(time.Since(start).Seconds())
		metrics.TaskMutations.WithLabelValues(string(action), Outcome(err)).Inc()
	}()

	if actor == "" {
		return nil, models.ErrUnauthenticated
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.txTimeout)
		defer cancel()
	}

	scope, err := c.backend.Begin(ctx)
	if err != nil {
		return nil, models.StorageError("beginning transaction", err)
	}
	// Runs on every exit path, panics included; a no-op once committed.
	defer func() {
		if abortErr := scope.Abort(context.WithoutCancel(ctx)); abortErr != nil {
			c.log.WithError(abortErr).WithField("action", action).Warn("aborting scope failed")
		}
	}()

	taskID, task, err := op(ctx, scope.Tasks())
	if err != nil {
		return nil, err
	}

	entry, err := scope.Audit().Append(ctx, taskID, action, actor)
	if err != nil {
		return nil, models.StorageError("appending audit entry", err)
	}

	if err := scope.Commit(ctx); err != nil {
		return nil, models.StorageError("committing", err)
	}

	c.log.WithFields(logrus.Fields{
		"action":   action,
		"task_id":  taskID,
		"audit_id": entry.ID,
		"user_id":  actor,
	}).Info("audit")

	if c.events != nil {
		c.events.Enqueue(models.TaskEvent{
			Action:    action,
			TaskID:    taskID,
			AuditID:   entry.ID,
			UserID:    actor,
			Task:      task,
			Timestamp: entry.Timestamp,
		})
	}

	return task, nil
}

// Outcome classifies err for metrics labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrValidation):
		return "validation"
	case errors.Is(err, models.ErrTaskNotFound):
		return "not_found"
	case errors.Is(err, models.ErrForbidden):
		return "forbidden"
	case errors.Is(err, models.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, models.ErrStorage):
		return "storage"
	default:
		return "error"
	}
}
