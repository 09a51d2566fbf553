package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/tasktrail/internal/metrics"
	"github.com/persistorai/tasktrail/internal/models"
)

// Publisher receives committed task events (the websocket hub).
type Publisher interface {
	Publish(event models.TaskEvent)
}

// EventWorker buffers committed task events and hands them to a Publisher
// from a single goroutine, so slow subscribers never hold up a mutation.
type EventWorker struct {
	pub    Publisher
	log    *logrus.Logger
	events chan models.TaskEvent
}

// NewEventWorker creates an EventWorker with the given queue capacity.
func NewEventWorker(pub Publisher, log *logrus.Logger, queueSize int) *EventWorker {
	if queueSize <= 0 {
		queueSize = 1000
	}

	return &EventWorker{
		pub:    pub,
		log:    log,
		events: make(chan models.TaskEvent, queueSize),
	}
}

// Enqueue adds an event. Non-blocking; drops the event if the queue is full.
func (w *EventWorker) Enqueue(event models.TaskEvent) {
	select {
	case w.events <- event:
		metrics.EventQueueDepth.Set(float64(len(w.events)))
	default:
		w.log.WithFields(logrus.Fields{
			"action":  event.Action,
			"task_id": event.TaskID,
		}).Warn("event queue full, dropping event")
	}
}

// Run forwards events until the context is cancelled, then drains remaining events.
func (w *EventWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case event := <-w.events:
			metrics.EventQueueDepth.Set(float64(len(w.events)))
			w.pub.Publish(event)
		}
	}
}

func (w *EventWorker) drain() {
	for {
		select {
		case event := <-w.events:
			w.pub.Publish(event)
		default:
			return
		}
	}
}
