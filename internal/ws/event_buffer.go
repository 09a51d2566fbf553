package ws

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

const (
	defaultBufferMaxLen = 1000
	defaultBufferMaxAge = 1 * time.Hour
)

// EventBuffer stores recent events per user for replay on reconnect.
type EventBuffer struct {
	mu     sync.RWMutex
	events map[string][]Event
	maxAge time.Duration
	maxLen int
	stop   chan struct{}
	once   sync.Once
}

// NewEventBuffer creates an EventBuffer with the given limits and starts
// a background goroutine that drops idle users every 10 minutes. Call Stop
// to end it.
func NewEventBuffer(maxLen int, maxAge time.Duration) *EventBuffer {
	eb := &EventBuffer{
		events: make(map[string][]Event),
		maxAge: maxAge,
		maxLen: maxLen,
		stop:   make(chan struct{}),
	}
	go eb.cleanupLoop()
	return eb
}

// Stop halts the background cleanup goroutine. Safe to call more than once.
func (eb *EventBuffer) Stop() {
	eb.once.Do(func() { close(eb.stop) })
}

func (eb *EventBuffer) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-eb.stop:
			return
		case <-ticker.C:
			eb.evictIdleUsers()
		}
	}
}

func (eb *EventBuffer) evictIdleUsers() {
	cutoff := time.Now().Add(-eb.maxAge)

	eb.mu.Lock()
	defer eb.mu.Unlock()

	for userID, buf := range eb.events {
		if len(buf) == 0 || buf[len(buf)-1].Time.Before(cutoff) {
			delete(eb.events, userID)
		}
	}
}

// Append stores an event for potential replay, evicting old entries.
func (eb *EventBuffer) Append(event *Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	buf := eb.events[event.UserID]

	// Evict expired events from the front.
	cutoff := time.Now().Add(-eb.maxAge)
	start := 0
	for start < len(buf) && buf[start].Time.Before(cutoff) {
		start++
	}
	if start > 0 {
		buf = buf[start:]
	}

	// Append and enforce max length.
	buf = append(buf, *event)
	if len(buf) > eb.maxLen {
		buf = buf[len(buf)-eb.maxLen:]
	}

	eb.events[event.UserID] = buf
}

// Since returns all events for a user with ID > lastEventID.
// Returns nil if the user has no buffered events.
func (eb *EventBuffer) Since(userID string, lastEventID uint64) []Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	buf := eb.events[userID]

	// IDs are strictly increasing, so binary search for the first one > lastEventID.
	lo, _ := slices.BinarySearchFunc(buf, lastEventID+1, func(e Event, id uint64) int {
		return cmp.Compare(e.ID, id)
	})

	if lo >= len(buf) {
		return nil
	}

	// Return a copy to avoid holding the lock via slice reference.
	result := make([]Event, len(buf)-lo)
	copy(result, buf[lo:])
	return result
}

// OldestID returns the oldest buffered event ID for a user, or 0 if empty.
func (eb *EventBuffer) OldestID(userID string) uint64 {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	buf := eb.events[userID]
	if len(buf) == 0 {
		return 0
	}
	return buf[0].ID
}
