// Package storetest holds the contract tests every domain.Backend must pass.
// Backend packages call Run from their own _test files.
package storetest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/tasktrail/internal/domain"
	"github.com/persistorai/tasktrail/internal/models"
	"github.com/persistorai/tasktrail/internal/service"
	"github.com/persistorai/tasktrail/internal/store"
)

// Run exercises b against the task store and audit recorder contract.
// Identities are randomized so a shared database can be reused across runs.
func Run(t *testing.T, b domain.Backend) {
	t.Helper()

	t.Run("CreateDefaults", func(t *testing.T) { testCreateDefaults(t, b) })
	t.Run("CreateValidation", func(t *testing.T) { testCreateValidation(t, b) })
	t.Run("UpdatePartial", func(t *testing.T) { testUpdatePartial(t, b) })
	t.Run("OwnerScoping", func(t *testing.T) { testOwnerScoping(t, b) })
	t.Run("DeleteTwice", func(t *testing.T) { testDeleteTwice(t, b) })
	t.Run("UncommittedInvisible", func(t *testing.T) { testUncommittedInvisible(t, b) })
	t.Run("AbortDiscards", func(t *testing.T) { testAbortDiscards(t, b) })
	t.Run("AuditOrderAndScope", func(t *testing.T) { testAuditOrderAndScope(t, b) })
	t.Run("AuditValidation", func(t *testing.T) { testAuditValidation(t, b) })
	t.Run("ReadScopeRejectsWrites", func(t *testing.T) { testReadScopeRejectsWrites(t, b) })
	t.Run("List", func(t *testing.T) { testList(t, b) })
	t.Run("MultibyteLimits", func(t *testing.T) { testMultibyteLimits(t, b) })
	t.Run("ClearDescription", func(t *testing.T) { testClearDescription(t, b) })
	t.Run("ConcurrentDisjointUpdates", func(t *testing.T) { testConcurrentDisjointUpdates(t, b) })
}

func newActor(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// Write runs fn in a read-write scope and commits when fn succeeds.
func Write(t *testing.T, b domain.Backend, fn func(s domain.Scope) error) error {
	t.Helper()

	ctx := context.Background()

	s, err := b.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer s.Abort(ctx) //nolint:errcheck // no-op after commit.

	if err := fn(s); err != nil {
		return err
	}

	return s.Commit(ctx)
}

// Read runs fn in a read scope.
func Read(t *testing.T, b domain.Backend, fn func(s domain.Scope) error) error {
	t.Helper()

	ctx := context.Background()

	s, err := b.BeginRead(ctx)
	if err != nil {
		t.Fatalf("BeginRead: %v", err)
	}
	defer s.Abort(ctx) //nolint:errcheck // read scope.

	return fn(s)
}

func mustCreate(t *testing.T, b domain.Backend, owner, title string) *models.Task {
	t.Helper()

	var task *models.Task
	err := Write(t, b, func(s domain.Scope) error {
		var err error
		task, err = s.Tasks().Create(context.Background(), owner, models.CreateTaskRequest{Title: title})
		return err
	})
	if err != nil {
		t.Fatalf("Create(%q): %v", title, err)
	}

	return task
}

func getTask(t *testing.T, b domain.Backend, id int64, owner string) (*models.Task, error) {
	t.Helper()

	var task *models.Task
	err := Read(t, b, func(s domain.Scope) error {
		var err error
		task, err = s.Tasks().Get(context.Background(), id, owner)
		return err
	})

	return task, err
}

func listLogs(t *testing.T, b domain.Backend, actor string) []models.AuditEntry {
	t.Helper()

	var entries []models.AuditEntry
	err := Read(t, b, func(s domain.Scope) error {
		var err error
		entries, err = s.Audit().ListForActor(context.Background(), actor)
		return err
	})
	if err != nil {
		t.Fatalf("ListForActor: %v", err)
	}

	return entries
}

func testCreateDefaults(t *testing.T, b domain.Backend) {
	owner := newActor("alice")
	created := mustCreate(t, b, owner, "Write spec")

	if created.ID <= 0 {
		t.Errorf("ID = %d, want positive", created.ID)
	}

	if created.Completed {
		t.Error("new task should not be completed")
	}

	if created.Priority != models.PriorityMedium {
		t.Errorf("Priority = %q, want Medium", created.Priority)
	}

	if created.UserID != owner {
		t.Errorf("UserID = %q, want %q", created.UserID, owner)
	}

	got, err := getTask(t, b, created.ID, owner)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got.Title != "Write spec" || got.Description != nil {
		t.Errorf("Get returned %+v", got)
	}
}

func testCreateValidation(t *testing.T, b domain.Backend) {
	owner := newActor("alice")

	tests := []struct {
		name string
		req  models.CreateTaskRequest
	}{
		{"empty title", models.CreateTaskRequest{Title: "  "}},
		{"bad priority", models.CreateTaskRequest{Title: "x", Priority: "Urgent"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Write(t, b, func(s domain.Scope) error {
				_, err := s.Tasks().Create(context.Background(), owner, tt.req)
				return err
			})
			if !errors.Is(err, models.ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func testUpdatePartial(t *testing.T, b domain.Backend) {
	owner := newActor("alice")
	created := mustCreate(t, b, owner, "Write spec")

	desc := "first draft"
	done := true
	high := models.PriorityHigh

	err := Write(t, b, func(s domain.Scope) error {
		_, err := s.Tasks().Update(context.Background(), created.ID, owner,
			models.UpdateTaskRequest{Description: &desc, Priority: &high})
		return err
	})
	if err != nil {
		t.Fatalf("first update: %v", err)
	}

	var updated *models.Task
	err = Write(t, b, func(s domain.Scope) error {
		var err error
		updated, err = s.Tasks().Update(context.Background(), created.ID, owner,
			models.UpdateTaskRequest{Completed: &done})
		return err
	})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}

	for _, got := range []*models.Task{updated, mustGet(t, b, created.ID, owner)} {
		if got.Title != "Write spec" {
			t.Errorf("Title = %q, want unchanged", got.Title)
		}

		if got.Description == nil || *got.Description != desc {
			t.Errorf("Description = %v, want %q", got.Description, desc)
		}

		if !got.Completed || got.Priority != models.PriorityHigh {
			t.Errorf("Completed/Priority = %v/%q, want true/High", got.Completed, got.Priority)
		}
	}
}

func mustGet(t *testing.T, b domain.Backend, id int64, owner string) *models.Task {
	t.Helper()

	task, err := getTask(t, b, id, owner)
	if err != nil {
		t.Fatalf("Get(%d): %v", id, err)
	}

	return task
}

func testOwnerScoping(t *testing.T, b domain.Backend) {
	alice := newActor("alice")
	bob := newActor("bob")
	task := mustCreate(t, b, alice, "private")
	title := "hijacked"

	ops := map[string]func(s domain.Scope) error{
		"update": func(s domain.Scope) error {
			_, err := s.Tasks().Update(context.Background(), task.ID, bob, models.UpdateTaskRequest{Title: &title})
			return err
		},
		"delete": func(s domain.Scope) error {
			return s.Tasks().Delete(context.Background(), task.ID, bob)
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			if err := Write(t, b, op); !errors.Is(err, models.ErrForbidden) {
				t.Fatalf("err = %v, want ErrForbidden", err)
			}
		})
	}

	if _, err := getTask(t, b, task.ID, bob); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("Get by non-owner: err = %v, want ErrForbidden", err)
	}

	if got := mustGet(t, b, task.ID, alice); got.Title != "private" {
		t.Errorf("Title = %q, want unchanged", got.Title)
	}

	if _, err := getTask(t, b, 1<<62, alice); !errors.Is(err, models.ErrTaskNotFound) {
		t.Errorf("Get missing: err = %v, want ErrTaskNotFound", err)
	}
}

func testDeleteTwice(t *testing.T, b domain.Backend) {
	owner := newActor("alice")
	task := mustCreate(t, b, owner, "ephemeral")

	del := func(s domain.Scope) error {
		return s.Tasks().Delete(context.Background(), task.ID, owner)
	}

	if err := Write(t, b, del); err != nil {
		t.Fatalf("first delete: %v", err)
	}

	if err := Write(t, b, del); !errors.Is(err, models.ErrTaskNotFound) {
		t.Fatalf("second delete: err = %v, want ErrTaskNotFound", err)
	}

	if _, err := getTask(t, b, task.ID, owner); !errors.Is(err, models.ErrTaskNotFound) {
		t.Fatalf("Get after delete: err = %v, want ErrTaskNotFound", err)
	}
}

func testUncommittedInvisible(t *testing.T, b domain.Backend) {
	ctx := context.Background()
	owner := newActor("alice")

	s, err := b.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer s.Abort(ctx) //nolint:errcheck // committed below.

	task, err := s.Tasks().Create(ctx, owner, models.CreateTaskRequest{Title: "pending"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := s.Audit().Append(ctx, task.ID, models.ActionCreate, owner); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if _, err := getTask(t, b, task.ID, owner); !errors.Is(err, models.ErrTaskNotFound) {
		t.Errorf("uncommitted task visible: err = %v", err)
	}

	if n := len(listLogs(t, b, owner)); n != 0 {
		t.Errorf("uncommitted entries visible: %d", n)
	}

	if err := s.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	mustGet(t, b, task.ID, owner)

	if n := len(listLogs(t, b, owner)); n != 1 {
		t.Errorf("entries after commit = %d, want 1", n)
	}
}

func testAbortDiscards(t *testing.T, b domain.Backend) {
	ctx := context.Background()
	owner := newActor("alice")
	task := mustCreate(t, b, owner, "keep me")

	s, err := b.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if err := s.Tasks().Delete(ctx, task.ID, owner); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := s.Audit().Append(ctx, task.ID, models.ActionDelete, owner); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := s.Abort(ctx); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	if err := s.Abort(ctx); err != nil {
		t.Fatalf("second Abort: %v", err)
	}

	mustGet(t, b, task.ID, owner)

	if n := len(listLogs(t, b, owner)); n != 0 {
		t.Errorf("entries after abort = %d, want 0", n)
	}
}

func testAuditOrderAndScope(t *testing.T, b domain.Backend) {
	ctx := context.Background()
	alice := newActor("alice")
	bob := newActor("bob")
	actions := []models.Action{models.ActionCreate, models.ActionUpdate, models.ActionDelete}

	for i, action := range actions {
		err := Write(t, b, func(s domain.Scope) error {
			if _, err := s.Audit().Append(ctx, int64(100+i), action, alice); err != nil {
				return err
			}
			_, err := s.Audit().Append(ctx, int64(200+i), action, bob)
			return err
		})
		if err != nil {
			t.Fatalf("Append %s: %v", action, err)
		}
	}

	entries := listLogs(t, b, alice)
	if len(entries) != len(actions) {
		t.Fatalf("got %d entries, want %d", len(entries), len(actions))
	}

	for i, e := range entries {
		if e.Action != actions[i] || e.TaskID != int64(100+i) || e.UserID != alice {
			t.Errorf("entry %d = %+v", i, e)
		}

		if i > 0 {
			prev := entries[i-1]
			if e.Timestamp.Before(prev.Timestamp) {
				t.Errorf("entry %d timestamp %v before %v", i, e.Timestamp, prev.Timestamp)
			}

			if e.ID <= prev.ID {
				t.Errorf("entry %d id %d not after %d", i, e.ID, prev.ID)
			}
		}
	}

	if n := len(listLogs(t, b, newActor("carol"))); n != 0 {
		t.Errorf("unrelated actor sees %d entries", n)
	}
}

func testAuditValidation(t *testing.T, b domain.Backend) {
	ctx := context.Background()

	err := Write(t, b, func(s domain.Scope) error {
		_, err := s.Audit().Append(ctx, 1, models.Action("archive"), newActor("alice"))
		return err
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("unknown action: err = %v, want ErrValidation", err)
	}

	err = Write(t, b, func(s domain.Scope) error {
		_, err := s.Audit().Append(ctx, 1, models.ActionCreate, "")
		return err
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("empty actor: err = %v, want ErrValidation", err)
	}
}

func testReadScopeRejectsWrites(t *testing.T, b domain.Backend) {
	ctx := context.Background()
	owner := newActor("alice")

	err := Read(t, b, func(s domain.Scope) error {
		_, err := s.Tasks().Create(ctx, owner, models.CreateTaskRequest{Title: "nope"})
		return err
	})
	if !errors.Is(err, models.ErrStorage) || !errors.Is(err, store.ErrReadOnly) {
		t.Errorf("Create in read scope: err = %v, want ErrStorage wrapping ErrReadOnly", err)
	}

	err = Read(t, b, func(s domain.Scope) error {
		_, err := s.Audit().Append(ctx, 1, models.ActionCreate, owner)
		return err
	})
	if !errors.Is(err, store.ErrReadOnly) {
		t.Errorf("Append in read scope: err = %v, want ErrReadOnly", err)
	}
}

func testList(t *testing.T, b domain.Backend) {
	owner := newActor("alice")
	other := newActor("bob")

	first := mustCreate(t, b, owner, "one")
	mustCreate(t, b, other, "not mine")
	second := mustCreate(t, b, owner, "two")

	var tasks []models.Task
	err := Read(t, b, func(s domain.Scope) error {
		var err error
		tasks, err = s.Tasks().List(context.Background(), owner)
		return err
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(tasks) != 2 || tasks[0].ID != first.ID || tasks[1].ID != second.ID {
		t.Fatalf("List = %+v, want [%d %d]", tasks, first.ID, second.ID)
	}

	err = Read(t, b, func(s domain.Scope) error {
		var err error
		tasks, err = s.Tasks().List(context.Background(), newActor("carol"))
		return err
	})
	if err != nil || tasks == nil || len(tasks) != 0 {
		t.Errorf("List for stranger = %v, %v; want empty non-nil slice", tasks, err)
	}
}

// Limits count characters, so a full-length multibyte title must round-trip.
func testMultibyteLimits(t *testing.T, b domain.Backend) {
	owner := newActor("alice")
	title := strings.Repeat("任", models.MaxTitleLen)
	desc := strings.Repeat("é", models.MaxDescriptionLen)

	var created *models.Task
	err := Write(t, b, func(s domain.Scope) error {
		var err error
		created, err = s.Tasks().Create(context.Background(), owner,
			models.CreateTaskRequest{Title: title, Description: &desc})
		return err
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got := mustGet(t, b, created.ID, owner)
	if got.Title != title {
		t.Errorf("Title has %d runes, want %d", len([]rune(got.Title)), models.MaxTitleLen)
	}
	if got.Description == nil || *got.Description != desc {
		t.Errorf("Description did not round-trip")
	}
}

func testClearDescription(t *testing.T, b domain.Backend) {
	owner := newActor("alice")
	desc := "draft"

	var created *models.Task
	err := Write(t, b, func(s domain.Scope) error {
		var err error
		created, err = s.Tasks().Create(context.Background(), owner,
			models.CreateTaskRequest{Title: "notes", Description: &desc})
		return err
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = Write(t, b, func(s domain.Scope) error {
		_, err := s.Tasks().Update(context.Background(), created.ID, owner,
			models.UpdateTaskRequest{ClearDescription: true})
		return err
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if got := mustGet(t, b, created.ID, owner); got.Description != nil {
		t.Errorf("Description = %q, want nil", *got.Description)
	}
}

// Concurrent patches touching different fields of one task must all land,
// each with its own update entry.
func testConcurrentDisjointUpdates(t *testing.T, b domain.Backend) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	ctx := context.Background()
	coord := service.NewCoordinator(b, nil, log, 0)
	owner := newActor("alice")

	task, err := coord.CreateTask(ctx, owner, models.CreateTaskRequest{Title: "shared"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	title := "renamed"
	desc := "details"
	done := true
	high := models.PriorityHigh
	patches := []models.UpdateTaskRequest{
		{Title: &title},
		{Description: &desc},
		{Completed: &done},
		{Priority: &high},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(patches))
	for i, patch := range patches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = coord.UpdateTask(ctx, owner, task.ID, patch)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	got := mustGet(t, b, task.ID, owner)
	if got.Title != title || got.Description == nil || *got.Description != desc ||
		!got.Completed || got.Priority != models.PriorityHigh {
		t.Errorf("task = %+v, want every patch applied", got)
	}

	var actions []models.Action
	for _, e := range listLogs(t, b, owner) {
		actions = append(actions, e.Action)
	}
	if len(actions) != 1+len(patches) || actions[0] != models.ActionCreate {
		t.Fatalf("actions = %v, want create followed by %d updates", actions, len(patches))
	}
	for _, a := range actions[1:] {
		if a != models.ActionUpdate {
			t.Errorf("actions = %v, want only updates after create", actions)
			break
		}
	}
}
