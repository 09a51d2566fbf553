package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/tasktrail/internal/api"
	"github.com/persistorai/tasktrail/internal/models"
)

func newTaskRouter(m *mockTasks) http.Handler {
	r := newTestRouter()
	h := api.NewTaskHandler(m, m, testLogger())
	r.GET("/tasks", h.List)
	r.POST("/tasks", h.Create)
	r.GET("/tasks/:id", h.Get)
	r.PUT("/tasks/:id", h.Update)
	r.DELETE("/tasks/:id", h.Delete)

	return r
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("invalid JSON %q: %v", body, err)
	}

	return v
}

func TestTaskCreate_Valid(t *testing.T) {
	t.Parallel()

	var gotActor string
	m := &mockTasks{
		createFn: func(_ context.Context, actor string, req models.CreateTaskRequest) (*models.Task, error) {
			gotActor = actor
			return &models.Task{ID: 1, Title: req.Title, Priority: models.PriorityMedium, UserID: actor}, nil
		},
	}

	w := doRequest(newTaskRouter(m), http.MethodPost, "/tasks", `{"title":"Write spec"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	body := decode[struct {
		Msg  string      `json:"msg"`
		ID   int64       `json:"id"`
		Task models.Task `json:"task"`
	}](t, w.Body.Bytes())

	if body.Msg != "Task created" || body.ID != 1 || body.Task.Title != "Write spec" {
		t.Errorf("unexpected body: %+v", body)
	}

	if gotActor != testUserID {
		t.Errorf("actor = %q, want %q", gotActor, testUserID)
	}
}

func TestTaskCreate_InvalidBody(t *testing.T) {
	t.Parallel()

	w := doRequest(newTaskRouter(&mockTasks{}), http.MethodPost, "/tasks", `{"title":`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestTaskErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{name: "validation", err: models.ErrMissingTitle, wantCode: http.StatusBadRequest, wantBody: "validation_error"},
		{name: "not found", err: models.ErrTaskNotFound, wantCode: http.StatusNotFound, wantBody: "Task not found"},
		{name: "forbidden", err: models.ErrForbidden, wantCode: http.StatusForbidden, wantBody: "Task belongs to another user"},
		{name: "unauthenticated", err: models.ErrUnauthenticated, wantCode: http.StatusUnauthorized, wantBody: "unauthorized"},
		{name: "storage", err: errNotMocked, wantCode: http.StatusInternalServerError, wantBody: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := &mockTasks{
				updateFn: func(context.Context, string, int64, models.UpdateTaskRequest) (*models.Task, error) {
					return nil, tt.err
				},
			}

			w := doRequest(newTaskRouter(m), http.MethodPut, "/tasks/5", `{"completed":true}`)

			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}

			body := decode[map[string]any](t, w.Body.Bytes())
			if body["code"] != tt.wantBody && body["message"] != tt.wantBody {
				t.Errorf("body %v does not mention %q", body, tt.wantBody)
			}
		})
	}
}

func TestTaskUpdate_PassesPatch(t *testing.T) {
	t.Parallel()

	var got models.UpdateTaskRequest
	var gotID int64
	m := &mockTasks{
		updateFn: func(_ context.Context, _ string, taskID int64, patch models.UpdateTaskRequest) (*models.Task, error) {
			got, gotID = patch, taskID
			return &models.Task{ID: taskID, Title: "Write spec", Completed: true}, nil
		},
	}

	w := doRequest(newTaskRouter(m), http.MethodPut, "/tasks/42", `{"completed":true}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if gotID != 42 {
		t.Errorf("task id = %d, want 42", gotID)
	}

	if got.Completed == nil || !*got.Completed || got.Title != nil || got.Priority != nil {
		t.Errorf("patch = %+v, want only completed=true", got)
	}

	body := decode[map[string]any](t, w.Body.Bytes())
	if body["msg"] != "Task updated" {
		t.Errorf("msg = %v, want Task updated", body["msg"])
	}
}

func TestTaskPath_InvalidID(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"/tasks/abc", "/tasks/0", "/tasks/-3"} {
		w := doRequest(newTaskRouter(&mockTasks{}), http.MethodGet, path, "")
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", path, w.Code)
		}
	}
}

func TestTaskDelete_OK(t *testing.T) {
	t.Parallel()

	m := &mockTasks{
		deleteFn: func(_ context.Context, _ string, taskID int64) error {
			if taskID != 9 {
				return models.ErrTaskNotFound
			}
			return nil
		},
	}

	w := doRequest(newTaskRouter(m), http.MethodDelete, "/tasks/9", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	body := decode[map[string]any](t, w.Body.Bytes())
	if body["msg"] != "Task deleted" {
		t.Errorf("msg = %v, want Task deleted", body["msg"])
	}
}

func TestTaskList_EmptyIsArray(t *testing.T) {
	t.Parallel()

	m := &mockTasks{
		listFn: func(context.Context, string) ([]models.Task, error) { return nil, nil },
	}

	w := doRequest(newTaskRouter(m), http.MethodGet, "/tasks", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	if got := w.Body.String(); got != `{"tasks":[]}` {
		t.Errorf("body = %s, want empty tasks array", got)
	}
}

func TestTaskHandlers_RequireUser(t *testing.T) {
	t.Parallel()

	// No user injected.
	h := api.NewTaskHandler(&mockTasks{}, &mockTasks{}, testLogger())
	engine := gin.New()
	engine.GET("/tasks", h.List)

	w := doRequest(engine, http.MethodGet, "/tasks", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuditList(t *testing.T) {
	t.Parallel()

	m := &mockTasks{
		listLogsFn: func(_ context.Context, actor string) ([]models.AuditEntry, error) {
			return []models.AuditEntry{
				{ID: 1, TaskID: 3, Action: models.ActionCreate, UserID: actor},
				{ID: 2, TaskID: 3, Action: models.ActionUpdate, UserID: actor},
			}, nil
		},
	}

	r := newTestRouter()
	r.GET("/task_logs", api.NewAuditHandler(m, testLogger()).List)

	w := doRequest(r, http.MethodGet, "/task_logs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	entries := decode[[]map[string]any](t, w.Body.Bytes())
	if len(entries) != 2 || entries[0]["action"] != "create" || entries[1]["action"] != "update" {
		t.Errorf("entries = %v, want [create update]", entries)
	}

	if _, ok := entries[0]["user_id"]; ok {
		t.Error("audit entries should not expose user_id")
	}
}
