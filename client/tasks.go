package client

import (
	"context"
	"strconv"
)

// TaskService handles task CRUD operations.
type TaskService struct {
	c *Client
}

type taskListResponse struct {
	Tasks []Task `json:"tasks"`
}

type taskCreateResponse struct {
	Msg  string `json:"msg"`
	ID   int64  `json:"id"`
	Task Task   `json:"task"`
}

type taskUpdateResponse struct {
	Msg  string `json:"msg"`
	Task Task   `json:"task"`
}

func taskPath(id int64) string {
	return "/api/v1/tasks/" + strconv.FormatInt(id, 10)
}

// List returns all tasks owned by the caller, ordered by id.
func (s *TaskService) List(ctx context.Context) ([]Task, error) {
	var resp taskListResponse
	if err := s.c.get(ctx, "/api/v1/tasks", &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// Get returns a single task by id.
func (s *TaskService) Get(ctx context.Context, id int64) (*Task, error) {
	var task Task
	if err := s.c.get(ctx, taskPath(id), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Create creates a new task.
func (s *TaskService) Create(ctx context.Context, req *CreateTaskRequest) (*Task, error) {
	var resp taskCreateResponse
	if err := s.c.post(ctx, "/api/v1/tasks", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

// Update applies a partial update to a task.
func (s *TaskService) Update(ctx context.Context, id int64, req *UpdateTaskRequest) (*Task, error) {
	var resp taskUpdateResponse
	if err := s.c.put(ctx, taskPath(id), req, &resp); err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

// Delete permanently removes a task. Its audit entries remain.
func (s *TaskService) Delete(ctx context.Context, id int64) error {
	return s.c.del(ctx, taskPath(id), nil)
}
