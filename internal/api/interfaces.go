package api

import (
	"context"

	"github.com/persistorai/tasktrail/internal/models"
)

// TaskMutator performs audited task mutations on behalf of an actor.
type TaskMutator interface {
	CreateTask(ctx context.Context, actor string, req models.CreateTaskRequest) (*models.Task, error)
	UpdateTask(ctx context.Context, actor string, taskID int64, patch models.UpdateTaskRequest) (*models.Task, error)
	DeleteTask(ctx context.Context, actor string, taskID int64) error
}

// TaskReader serves committed task and audit state scoped to an actor.
type TaskReader interface {
	GetTask(ctx context.Context, actor string, taskID int64) (*models.Task, error)
	ListTasks(ctx context.Context, actor string) ([]models.Task, error)
	ListLogs(ctx context.Context, actor string) ([]models.AuditEntry, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
