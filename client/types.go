package client

import (
	"encoding/json"
	"time"
)

// Priority values accepted by the server (case-insensitive on input).
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Task is a single to-do item owned by the authenticated user.
type Task struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
	Priority    string  `json:"priority"`
	UserID      string  `json:"user_id"`
}

// CreateTaskRequest is the payload for creating a task. Priority defaults to Medium.
type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Priority    string  `json:"priority,omitempty"`
}

// UpdateTaskRequest is a partial update. Nil fields are left unchanged.
// Set ClearDescription to remove the description.
type UpdateTaskRequest struct {
	Title            *string `json:"title,omitempty"`
	Description      *string `json:"description,omitempty"`
	Completed        *bool   `json:"completed,omitempty"`
	Priority         *string `json:"priority,omitempty"`
	ClearDescription bool    `json:"-"`
}

// MarshalJSON sends "description": null when ClearDescription is set.
func (r UpdateTaskRequest) MarshalJSON() ([]byte, error) {
	type plain UpdateTaskRequest
	if !r.ClearDescription || r.Description != nil {
		return json.Marshal(plain(r))
	}

	return json.Marshal(struct {
		plain
		Description *string `json:"description"`
	}{plain: plain(r)})
}

// LogEntry is one audit record. TaskID may refer to a deleted task.
type LogEntry struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Backend       string  `json:"backend"`
	Database      string  `json:"database"`
	WSClients     int     `json:"ws_clients"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// ReadyResponse is returned by GET /api/v1/ready.
type ReadyResponse struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	SchemaVersion int               `json:"schema_version"`
}
