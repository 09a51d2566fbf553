package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/tasktrail/internal/domain"
	"github.com/persistorai/tasktrail/internal/models"
)

// Queries serves identity-scoped reads straight from the backend. Each call
// runs in its own read scope and therefore only sees committed state.
type Queries struct {
	backend Backend
	log     *logrus.Logger
}

// NewQueries creates a Queries.
func NewQueries(backend Backend, log *logrus.Logger) *Queries {
	return &Queries{backend: backend, log: log}
}

// GetTask returns the actor's task.
func (q *Queries) GetTask(ctx context.Context, actor string, taskID int64) (*models.Task, error) {
	var task *models.Task

	err := q.read(ctx, actor, func(s domain.Scope) error {
		var err error
		task, err = s.Tasks().Get(ctx, taskID, actor)
		return err
	})

	return task, err
}

// ListTasks returns all of the actor's tasks ordered by id.
func (q *Queries) ListTasks(ctx context.Context, actor string) ([]models.Task, error) {
	var tasks []models.Task

	err := q.read(ctx, actor, func(s domain.Scope) error {
		var err error
		tasks, err = s.Tasks().List(ctx, actor)
		return err
	})

	return tasks, err
}

// ListLogs returns the audit entries recorded for the actor, oldest first.
func (q *Queries) ListLogs(ctx context.Context, actor string) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry

	err := q.read(ctx, actor, func(s domain.Scope) error {
		var err error
		entries, err = s.Audit().ListForActor(ctx, actor)
		return err
	})

	return entries, err
}

func (q *Queries) read(ctx context.Context, actor string, fn func(s domain.Scope) error) error {
	if actor == "" {
		return models.ErrUnauthenticated
	}

	scope, err := q.backend.BeginRead(ctx)
	if err != nil {
		return models.StorageError("beginning read", err)
	}
	defer func() {
		if err := scope.Abort(context.WithoutCancel(ctx)); err != nil {
			q.log.WithError(err).Debug("closing read scope failed")
		}
	}()

	return fn(scope)
}
