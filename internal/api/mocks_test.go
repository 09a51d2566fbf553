package api_test

import (
	"context"
	"errors"

	"github.com/persistorai/tasktrail/internal/models"
)

// mockTasks implements api.TaskMutator and api.TaskReader for testing.
// Unset functions fail the call with a storage error.
type mockTasks struct {
	createFn   func(ctx context.Context, actor string, req models.CreateTaskRequest) (*models.Task, error)
	updateFn   func(ctx context.Context, actor string, taskID int64, patch models.UpdateTaskRequest) (*models.Task, error)
	deleteFn   func(ctx context.Context, actor string, taskID int64) error
	getFn      func(ctx context.Context, actor string, taskID int64) (*models.Task, error)
	listFn     func(ctx context.Context, actor string) ([]models.Task, error)
	listLogsFn func(ctx context.Context, actor string) ([]models.AuditEntry, error)
}

var errNotMocked = models.StorageError("mock", errors.New("not mocked"))

func (m *mockTasks) CreateTask(ctx context.Context, actor string, req models.CreateTaskRequest) (*models.Task, error) {
	if m.createFn == nil {
		return nil, errNotMocked
	}

	return m.createFn(ctx, actor, req)
}

func (m *mockTasks) UpdateTask(ctx context.Context, actor string, taskID int64, patch models.UpdateTaskRequest) (*models.Task, error) {
	if m.updateFn == nil {
		return nil, errNotMocked
	}

	return m.updateFn(ctx, actor, taskID, patch)
}

func (m *mockTasks) DeleteTask(ctx context.Context, actor string, taskID int64) error {
	if m.deleteFn == nil {
		return errNotMocked
	}

	return m.deleteFn(ctx, actor, taskID)
}

func (m *mockTasks) GetTask(ctx context.Context, actor string, taskID int64) (*models.Task, error) {
	if m.getFn == nil {
		return nil, errNotMocked
	}

	return m.getFn(ctx, actor, taskID)
}

func (m *mockTasks) ListTasks(ctx context.Context, actor string) ([]models.Task, error) {
	if m.listFn == nil {
		return nil, errNotMocked
	}

	return m.listFn(ctx, actor)
}

func (m *mockTasks) ListLogs(ctx context.Context, actor string) ([]models.AuditEntry, error) {
	if m.listLogsFn == nil {
		return nil, errNotMocked
	}

	return m.listLogsFn(ctx, actor)
}

// mockPinger implements api.Pinger.
type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }
