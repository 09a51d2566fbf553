package service

import (
	"context"
	"errors"
	"testing"

	"github.com/persistorai/tasktrail/internal/models"
)

func TestQueries_ScopedByActor(t *testing.T) {
	h := newHarness(newMemoryBackend())
	ctx := context.Background()

	a1 := h.create(t, "alice", "first")
	h.create(t, "bob", "bob's")
	a2 := h.create(t, "alice", "second")

	tasks, err := h.queries.ListTasks(ctx, "alice")
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != a1.ID || tasks[1].ID != a2.ID {
		t.Fatalf("ListTasks = %+v", tasks)
	}

	if _, err := h.queries.GetTask(ctx, "bob", a1.ID); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("GetTask by bob: err = %v, want ErrForbidden", err)
	}

	entries, err := h.queries.ListLogs(ctx, "bob")
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != "bob" {
		t.Errorf("ListLogs(bob) = %+v", entries)
	}
}

func TestQueries_RequireActor(t *testing.T) {
	q := NewQueries(newMemoryBackend(), testLogger())
	ctx := context.Background()

	if _, err := q.GetTask(ctx, "", 1); !errors.Is(err, models.ErrUnauthenticated) {
		t.Errorf("GetTask: err = %v", err)
	}

	if _, err := q.ListTasks(ctx, ""); !errors.Is(err, models.ErrUnauthenticated) {
		t.Errorf("ListTasks: err = %v", err)
	}

	if _, err := q.ListLogs(ctx, ""); !errors.Is(err, models.ErrUnauthenticated) {
		t.Errorf("ListLogs: err = %v", err)
	}
}

func TestQueries_LogsOutliveTasks(t *testing.T) {
	h := newHarness(newMemoryBackend())
	ctx := context.Background()
	task := h.create(t, "alice", "short-lived")

	if err := h.coord.DeleteTask(ctx, "alice", task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}

	entries := h.logs(t, "alice")
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if e.TaskID != task.ID {
			t.Errorf("entry task id = %d, want %d", e.TaskID, task.ID)
		}
	}
}
