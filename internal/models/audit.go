package models

import "time"

// Action names the kind of task mutation an audit entry records.
type Action string

// Mutating actions. Each successful one yields exactly one AuditEntry.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	default:
		return false
	}
}

// AuditEntry is an immutable record of one committed task mutation.
// TaskID may reference a task that no longer exists.
type AuditEntry struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"-"`
}

// TaskEvent describes a committed mutation for change-stream subscribers.
type TaskEvent struct {
	Action    Action    `json:"action"`
	TaskID    int64     `json:"task_id"`
	AuditID   int64     `json:"audit_id"`
	UserID    string    `json:"user_id"`
	Task      *Task     `json:"task,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
