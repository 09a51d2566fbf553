// Package models defines the task and audit log types shared by every layer.
package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Column limits inherited from the original schema.
const (
	MaxTitleLen       = 120
	MaxDescriptionLen = 500
)

// Priority is the urgency bucket of a task.
type Priority string

// Supported priorities.
const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// ParsePriority maps s onto a known Priority, ignoring case.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	default:
		return "", ErrInvalidPriority
	}
}

// Task is a single to-do item owned by exactly one user.
type Task struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Completed   bool     `json:"completed"`
	Priority    Priority `json:"priority"`
	UserID      string   `json:"user_id"`
}

// CreateTaskRequest is the payload for creating a task.
type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
}

// Validate checks required fields and normalizes the priority, defaulting to Medium.
func (r *CreateTaskRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrMissingTitle
	}

	if utf8.RuneCountInString(r.Title) > MaxTitleLen {
		return ErrFieldTooLong("title", MaxTitleLen)
	}

	if r.Description != nil && utf8.RuneCountInString(*r.Description) > MaxDescriptionLen {
		return ErrFieldTooLong("description", MaxDescriptionLen)
	}

	if r.Priority == "" {
		r.Priority = PriorityMedium

		return nil
	}

	p, err := ParsePriority(string(r.Priority))
	if err != nil {
		return err
	}
	r.Priority = p

	return nil
}

// UpdateTaskRequest is a partial update. Nil fields keep their current value.
// ClearDescription removes the description; a JSON "description": null sets it.
type UpdateTaskRequest struct {
	Title            *string   `json:"title,omitempty"`
	Description      *string   `json:"description,omitempty"`
	Completed        *bool     `json:"completed,omitempty"`
	Priority         *Priority `json:"priority,omitempty"`
	ClearDescription bool      `json:"-"`
}

// UnmarshalJSON tells an explicit null description apart from an absent one.
func (r *UpdateTaskRequest) UnmarshalJSON(data []byte) error {
	type plain UpdateTaskRequest

	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*r = UpdateTaskRequest(p)
	if raw, ok := fields["description"]; ok && bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		r.ClearDescription = true
	}

	return nil
}

// Validate checks the fields present in the patch and normalizes the priority.
func (r *UpdateTaskRequest) Validate() error {
	if r.Title != nil {
		if strings.TrimSpace(*r.Title) == "" {
			return ErrMissingTitle
		}

		if utf8.RuneCountInString(*r.Title) > MaxTitleLen {
			return ErrFieldTooLong("title", MaxTitleLen)
		}
	}

	if r.Description != nil && utf8.RuneCountInString(*r.Description) > MaxDescriptionLen {
		return ErrFieldTooLong("description", MaxDescriptionLen)
	}

	if r.Priority != nil {
		p, err := ParsePriority(string(*r.Priority))
		if err != nil {
			return err
		}
		r.Priority = &p
	}

	return nil
}

// Apply copies the present patch fields onto t.
func (r *UpdateTaskRequest) Apply(t *Task) {
	if r.Title != nil {
		t.Title = *r.Title
	}

	if r.Description != nil {
		d := *r.Description
		t.Description = &d
	} else if r.ClearDescription {
		t.Description = nil
	}

	if r.Completed != nil {
		t.Completed = *r.Completed
	}

	if r.Priority != nil {
		t.Priority = *r.Priority
	}
}
