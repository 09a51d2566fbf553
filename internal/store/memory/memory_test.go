package memory_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/tasktrail/internal/domain"
	"github.com/persistorai/tasktrail/internal/models"
	"github.com/persistorai/tasktrail/internal/store"
	"github.com/persistorai/tasktrail/internal/store/memory"
	"github.com/persistorai/tasktrail/internal/store/storetest"
)

func newBackend() *memory.Backend {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return memory.New(store.NewBase(log, nil))
}

func TestContract(t *testing.T) {
	storetest.Run(t, newBackend())
}

func TestBeginWaitsForWriter(t *testing.T) {
	b := newBackend()
	ctx := context.Background()

	first, err := b.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	if _, err := b.Begin(waitCtx); !errors.Is(err, models.ErrStorage) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second Begin: err = %v, want storage error wrapping deadline", err)
	}

	if err := first.Abort(ctx); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	second, err := b.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin after release: %v", err)
	}
	_ = second.Abort(ctx)
}

func TestCommitWithCancelledContextDiscards(t *testing.T) {
	b := newBackend()

	ctx, cancel := context.WithCancel(context.Background())
	s, err := b.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	task, err := s.Tasks().Create(ctx, "alice", models.CreateTaskRequest{Title: "doomed"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	cancel()

	if err := s.Commit(ctx); !errors.Is(err, models.ErrStorage) {
		t.Fatalf("Commit: err = %v, want ErrStorage", err)
	}

	err = storetest.Read(t, b, func(s domain.Scope) error {
		_, err := s.Tasks().Get(context.Background(), task.ID, "alice")
		return err
	})
	if !errors.Is(err, models.ErrTaskNotFound) {
		t.Fatalf("Get: err = %v, want ErrTaskNotFound", err)
	}

	// The writer slot must have been released.
	next, err := b.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin after failed commit: %v", err)
	}
	_ = next.Abort(context.Background())
}

func TestScopeUnusableAfterCommit(t *testing.T) {
	b := newBackend()
	ctx := context.Background()

	s, err := b.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if err := s.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if _, err := s.Tasks().Create(ctx, "alice", models.CreateTaskRequest{Title: "late"}); !errors.Is(err, models.ErrStorage) {
		t.Errorf("Create after commit: err = %v, want ErrStorage", err)
	}

	if err := s.Commit(ctx); !errors.Is(err, models.ErrStorage) {
		t.Errorf("second Commit: err = %v, want ErrStorage", err)
	}

	if err := s.Abort(ctx); err != nil {
		t.Errorf("Abort after commit: %v", err)
	}
}

func TestReturnedTasksAreCopies(t *testing.T) {
	b := newBackend()
	desc := "original"

	var created *models.Task
	err := storetest.Write(t, b, func(s domain.Scope) error {
		var err error
		created, err = s.Tasks().Create(context.Background(), "alice",
			models.CreateTaskRequest{Title: "t", Description: &desc})
		return err
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	*created.Description = "mutated"
	desc = "also mutated"

	var got *models.Task
	err = storetest.Read(t, b, func(s domain.Scope) error {
		var err error
		got, err = s.Tasks().Get(context.Background(), created.ID, "alice")
		return err
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if *got.Description != "original" {
		t.Errorf("Description = %q, want original", *got.Description)
	}
}

func TestConcurrentWritersSerialize(t *testing.T) {
	b := newBackend()
	const writers = 16

	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := storetest.Write(t, b, func(s domain.Scope) error {
				task, err := s.Tasks().Create(context.Background(), "alice", models.CreateTaskRequest{Title: "t"})
				if err != nil {
					return err
				}
				_, err = s.Audit().Append(context.Background(), task.ID, models.ActionCreate, "alice")
				return err
			})
			if err != nil {
				t.Errorf("Write: %v", err)
			}
		}()
	}
	wg.Wait()

	var tasks []models.Task
	var entries []models.AuditEntry
	err := storetest.Read(t, b, func(s domain.Scope) error {
		var err error
		if tasks, err = s.Tasks().List(context.Background(), "alice"); err != nil {
			return err
		}
		entries, err = s.Audit().ListForActor(context.Background(), "alice")
		return err
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if len(tasks) != writers || len(entries) != writers {
		t.Fatalf("tasks=%d entries=%d, want %d each", len(tasks), len(entries), writers)
	}

	seen := make(map[int64]bool)
	for _, task := range tasks {
		if seen[task.ID] {
			t.Fatalf("duplicate task id %d", task.ID)
		}
		seen[task.ID] = true
	}
}
