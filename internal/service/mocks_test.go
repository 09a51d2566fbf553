package service

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/tasktrail/internal/domain"
	"github.com/persistorai/tasktrail/internal/models"
	"github.com/persistorai/tasktrail/internal/store"
	"github.com/persistorai/tasktrail/internal/store/memory"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func newMemoryBackend() *memory.Backend {
	return memory.New(store.NewBase(testLogger(), nil))
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.TaskEvent
}

func (p *recordingPublisher) Publish(event models.TaskEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) getEvents() []models.TaskEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]models.TaskEvent(nil), p.events...)
}

// recordingEnqueuer collects events handed to the coordinator's queue.
type recordingEnqueuer struct {
	recordingPublisher
}

func (e *recordingEnqueuer) Enqueue(event models.TaskEvent) { e.Publish(event) }

var (
	errCommit = errors.New("disk full")
	errAppend = errors.New("audit table unavailable")
	errBegin  = errors.New("connection refused")
)

// faultyBackend wraps a real backend and injects failures into its scopes.
type faultyBackend struct {
	domain.Backend

	beginErr    error
	commitErr   error
	appendErr   error
	panicOnTask bool
}

func (f *faultyBackend) Begin(ctx context.Context) (domain.Scope, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}

	s, err := f.Backend.Begin(ctx)
	if err != nil {
		return nil, err
	}

	return &faultyScope{Scope: s, f: f}, nil
}

type faultyScope struct {
	domain.Scope
	f *faultyBackend
}

func (s *faultyScope) Tasks() domain.TaskStore {
	if s.f.panicOnTask {
		return panickingTasks{s.Scope.Tasks()}
	}

	return s.Scope.Tasks()
}

func (s *faultyScope) Audit() domain.AuditRecorder {
	if s.f.appendErr != nil {
		return failingRecorder{AuditRecorder: s.Scope.Audit(), err: s.f.appendErr}
	}

	return s.Scope.Audit()
}

// Commit simulates a commit that the store rejects: the work is rolled back.
func (s *faultyScope) Commit(ctx context.Context) error {
	if s.f.commitErr != nil {
		_ = s.Scope.Abort(ctx)

		return s.f.commitErr
	}

	return s.Scope.Commit(ctx)
}

type failingRecorder struct {
	domain.AuditRecorder
	err error
}

func (r failingRecorder) Append(context.Context, int64, models.Action, string) (*models.AuditEntry, error) {
	return nil, r.err
}

type panickingTasks struct {
	domain.TaskStore
}

func (panickingTasks) Create(context.Context, string, models.CreateTaskRequest) (*models.Task, error) {
	panic("store exploded")
}
