package ws

import (
	"sync"
	"time"

	"github.com/persistorai/tasktrail/internal/models"
)

// Event is the structured message sent to WebSocket clients. ID increases by
// one per event for each user, so clients can detect gaps and ask for replay.
type Event struct {
	Type   string           `json:"type"`
	ID     uint64           `json:"id"`
	UserID string           `json:"-"`
	Data   models.TaskEvent `json:"data"`
	Time   time.Time        `json:"time"`
}

// EventType returns the wire type for a task action, e.g. "task.update".
func EventType(action models.Action) string {
	return "task." + string(action)
}

// SubscribeMsg is sent by the client on connect to request event replay.
type SubscribeMsg struct {
	Type        string `json:"type"`
	LastEventID uint64 `json:"last_event_id"`
}

// ResetMsg tells the client to do a full refresh (requested events too old).
type ResetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// EventSequence tracks monotonic event IDs per user.
type EventSequence struct {
	mu       sync.Mutex
	counters map[string]uint64
}

// NewEventSequence creates a new EventSequence.
func NewEventSequence() *EventSequence {
	return &EventSequence{counters: make(map[string]uint64)}
}

// Next returns the next sequence number for a user.
func (es *EventSequence) Next(userID string) uint64 {
	es.mu.Lock()
	defer es.mu.Unlock()

	es.counters[userID]++

	return es.counters[userID]
}
