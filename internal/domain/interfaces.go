// Package domain defines the canonical store and scope interfaces shared by
// the backends (Postgres, SQLite, memory) and the service layer. Consumers
// depend on these interfaces rather than re-declaring equivalent ones.
package domain

import (
	"context"

	"github.com/persistorai/tasktrail/internal/models"
)

// TaskStore owns task records. Every operation is scoped by owner: a task
// that exists but belongs to someone else yields models.ErrForbidden.
type TaskStore interface {
	Create(ctx context.Context, owner string, req models.CreateTaskRequest) (*models.Task, error)
	Update(ctx context.Context, taskID int64, owner string, patch models.UpdateTaskRequest) (*models.Task, error)
	Delete(ctx context.Context, taskID int64, owner string) error
	Get(ctx context.Context, taskID int64, owner string) (*models.Task, error)
	List(ctx context.Context, owner string) ([]models.Task, error)
}

// AuditRecorder appends immutable audit entries. There is no update or delete.
type AuditRecorder interface {
	Append(ctx context.Context, taskID int64, action models.Action, actor string) (*models.AuditEntry, error)
	ListForActor(ctx context.Context, actor string) ([]models.AuditEntry, error)
}

// Scope is one transaction against the backing store. Work done through
// Tasks and Audit becomes visible only after Commit; Abort discards it.
// Abort after Commit is a no-op, so callers may always defer it.
type Scope interface {
	Tasks() TaskStore
	Audit() AuditRecorder
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
}

// Backend opens scopes against one store instance.
type Backend interface {
	// Begin opens a read-write scope.
	Begin(ctx context.Context) (Scope, error)
	// BeginRead opens a scope that observes committed state only.
	// Mutating through it is an error.
	BeginRead(ctx context.Context) (Scope, error)
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
	Close() error
}
