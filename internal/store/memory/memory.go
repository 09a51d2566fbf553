// Package memory implements domain.Backend entirely in process memory.
//
// Read-write scopes are serialized by a single-slot semaphore and stage their
// changes privately until Commit, so readers only ever see committed state.
// Intended for tests and single-process development runs.
package memory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/persistorai/tasktrail/internal/domain"
	"github.com/persistorai/tasktrail/internal/models"
	"github.com/persistorai/tasktrail/internal/policy"
	"github.com/persistorai/tasktrail/internal/store"
)

var errScopeDone = errors.New("scope already committed or aborted")

// Compile-time check: *Backend must satisfy domain.Backend.
var _ domain.Backend = (*Backend)(nil)

// Backend is an in-memory task and audit store.
type Backend struct {
	store.Base

	writer chan struct{} // one slot; held by the open read-write scope

	mu         sync.RWMutex // guards the committed state below
	tasks      map[int64]models.Task
	logs       []models.AuditEntry
	lastTaskID int64
	lastLogID  int64
}

// New creates an empty Backend.
func New(base store.Base) *Backend {
	return &Backend{
		Base:   store.NewBase(base.Log, base.Clock),
		writer: make(chan struct{}, 1),
		tasks:  make(map[int64]models.Task),
	}
}

// Begin opens a read-write scope, waiting for any other writer to finish.
func (b *Backend) Begin(ctx context.Context) (domain.Scope, error) {
	select {
	case b.writer <- struct{}{}:
	case <-ctx.Done():
		return nil, models.StorageError("beginning transaction", ctx.Err())
	}

	b.mu.RLock()
	s := &scope{
		b:          b,
		writable:   true,
		staged:     make(map[int64]*models.Task),
		lastTaskID: b.lastTaskID,
		lastLogID:  b.lastLogID,
	}
	b.mu.RUnlock()

	return s, nil
}

// BeginRead opens a read-only scope. Each read observes the latest committed state.
func (b *Backend) BeginRead(ctx context.Context) (domain.Scope, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.StorageError("beginning read", err)
	}

	return &scope{b: b}, nil
}

// Ping always succeeds.
func (b *Backend) Ping(context.Context) error { return nil }

// Close is a no-op.
func (b *Backend) Close() error { return nil }

// committedTask returns a copy of the committed task with id.
func (b *Backend) committedTask(id int64) (models.Task, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, ok := b.tasks[id]

	return cloneTask(t), ok
}

// scope is one transaction. A nil entry in staged marks a deletion.
type scope struct {
	b        *Backend
	writable bool
	done     bool

	staged     map[int64]*models.Task
	appended   []models.AuditEntry
	lastTaskID int64
	lastLogID  int64
}

func (s *scope) Tasks() domain.TaskStore { return taskView{s} }
func (s *scope) Audit() domain.AuditRecorder { return auditView{s} }

// Commit publishes the staged changes atomically and releases the writer slot.
func (s *scope) Commit(ctx context.Context) error {
	if s.done {
		return models.StorageError("committing", errScopeDone)
	}

	if err := ctx.Err(); err != nil {
		s.release()

		return models.StorageError("committing", err)
	}

	if s.writable {
		s.b.mu.Lock()
		for id, t := range s.staged {
			if t == nil {
				delete(s.b.tasks, id)
				continue
			}
			s.b.tasks[id] = *t
		}
		s.b.logs = append(s.b.logs, s.appended...)
		s.b.lastTaskID = s.lastTaskID
		s.b.lastLogID = s.lastLogID
		s.b.mu.Unlock()
	}

	s.release()

	return nil
}

// Abort discards staged changes. Safe to call after Commit.
func (s *scope) Abort(context.Context) error {
	if s.done {
		return nil
	}

	s.release()

	return nil
}

func (s *scope) release() {
	s.done = true
	s.staged = nil
	s.appended = nil

	if s.writable {
		<-s.b.writer
	}
}

func (s *scope) check(mutating bool) error {
	if s.done {
		return models.StorageError("using scope", errScopeDone)
	}

	if mutating && !s.writable {
		return models.StorageError("using scope", store.ErrReadOnly)
	}

	return nil
}

// lookup resolves id through the staged overlay, then committed state.
func (s *scope) lookup(id int64) (models.Task, bool) {
	if t, ok := s.staged[id]; ok {
		if t == nil {
			return models.Task{}, false
		}

		return cloneTask(*t), true
	}

	return s.b.committedTask(id)
}

// loadOwned fetches id and checks that owner may act on it.
func (s *scope) loadOwned(id int64, owner string) (models.Task, error) {
	t, ok := s.lookup(id)
	if !ok {
		return models.Task{}, models.ErrTaskNotFound
	}

	if err := policy.Authorize(owner, t.UserID); err != nil {
		return models.Task{}, err
	}

	return t, nil
}

type taskView struct{ s *scope }

func (v taskView) Create(_ context.Context, owner string, req models.CreateTaskRequest) (*models.Task, error) {
	if err := v.s.check(true); err != nil {
		return nil, err
	}

	if owner == "" {
		return nil, models.ErrMissingActor
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	v.s.lastTaskID++
	t := models.Task{
		ID:          v.s.lastTaskID,
		Title:       req.Title,
		Description: cloneString(req.Description),
		Priority:    req.Priority,
		UserID:      owner,
	}
	v.s.staged[t.ID] = &t

	out := cloneTask(t)

	return &out, nil
}

func (v taskView) Update(_ context.Context, taskID int64, owner string, patch models.UpdateTaskRequest) (*models.Task, error) {
	if err := v.s.check(true); err != nil {
		return nil, err
	}

	if err := patch.Validate(); err != nil {
		return nil, err
	}

	t, err := v.s.loadOwned(taskID, owner)
	if err != nil {
		return nil, err
	}

	patch.Apply(&t)
	v.s.staged[taskID] = &t

	out := cloneTask(t)

	return &out, nil
}

func (v taskView) Delete(_ context.Context, taskID int64, owner string) error {
	if err := v.s.check(true); err != nil {
		return err
	}

	if _, err := v.s.loadOwned(taskID, owner); err != nil {
		return err
	}

	v.s.staged[taskID] = nil

	return nil
}

func (v taskView) Get(_ context.Context, taskID int64, owner string) (*models.Task, error) {
	if err := v.s.check(false); err != nil {
		return nil, err
	}

	t, err := v.s.loadOwned(taskID, owner)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (v taskView) List(_ context.Context, owner string) ([]models.Task, error) {
	if err := v.s.check(false); err != nil {
		return nil, err
	}

	v.s.b.mu.RLock()
	out := make([]models.Task, 0)
	for id, t := range v.s.b.tasks {
		if _, overridden := v.s.staged[id]; overridden {
			continue
		}
		if t.UserID == owner {
			out = append(out, cloneTask(t))
		}
	}
	v.s.b.mu.RUnlock()

	for _, t := range v.s.staged {
		if t != nil && t.UserID == owner {
			out = append(out, cloneTask(*t))
		}
	}

	slices.SortFunc(out, func(a, b models.Task) int { return compareInt64(a.ID, b.ID) })

	return out, nil
}

type auditView struct{ s *scope }

func (v auditView) Append(_ context.Context, taskID int64, action models.Action, actor string) (*models.AuditEntry, error) {
	if err := v.s.check(true); err != nil {
		return nil, err
	}

	if actor == "" {
		return nil, models.ErrMissingActor
	}

	if !action.Valid() {
		return nil, models.ErrInvalidAction
	}

	v.s.lastLogID++
	e := models.AuditEntry{
		ID:        v.s.lastLogID,
		TaskID:    taskID,
		Action:    action,
		Timestamp: v.s.b.Clock.Now(),
		UserID:    actor,
	}
	v.s.appended = append(v.s.appended, e)

	return &e, nil
}

func (v auditView) ListForActor(_ context.Context, actor string) ([]models.AuditEntry, error) {
	if err := v.s.check(false); err != nil {
		return nil, err
	}

	out := make([]models.AuditEntry, 0)

	v.s.b.mu.RLock()
	for _, e := range v.s.b.logs {
		if e.UserID == actor {
			out = append(out, e)
		}
	}
	v.s.b.mu.RUnlock()

	for _, e := range v.s.appended {
		if e.UserID == actor {
			out = append(out, e)
		}
	}

	slices.SortStableFunc(out, func(a, b models.AuditEntry) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}

		return compareInt64(a.ID, b.ID)
	})

	return out, nil
}

func cloneTask(t models.Task) models.Task {
	t.Description = cloneString(t.Description)

	return t
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}

	v := *s

	return &v
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
