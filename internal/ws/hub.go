// Package ws streams committed task events to each user's WebSocket clients.
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/tasktrail/internal/metrics"
	"github.com/persistorai/tasktrail/internal/models"
)

// Hub limits and channel buffer sizes.
const (
	broadcastBuffer   = 256
	registerBuffer    = 64
	maxClients        = 1000
	maxClientsPerUser = 10
)

// drainTimeout is how long the hub waits for clients to flush after shutdown.
const drainTimeout = 3 * time.Second

// userMessage is sent through the broadcast channel to the Run goroutine.
type userMessage struct {
	userID string
	msg    []byte
}

// Hub manages active WebSocket clients and fans events out to them.
// All client map mutations happen exclusively in the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	perUser    map[string]int
	register   chan *Client
	unregister chan *Client
	broadcast  chan userMessage
	shutdown   chan struct{} // signals Run to begin graceful drain
	done       chan struct{} // closed when Run has finished draining
	count      atomic.Int64
	log        *logrus.Logger
	seq        *EventSequence
	buffer     *EventBuffer
	publishMu  sync.Mutex // keeps per-user IDs in buffer order
}

// NewHub creates a new Hub instance.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		perUser:    make(map[string]int),
		register:   make(chan *Client, registerBuffer),
		unregister: make(chan *Client, registerBuffer),
		broadcast:  make(chan userMessage, broadcastBuffer),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		log:        log,
		seq:        NewEventSequence(),
		buffer:     NewEventBuffer(defaultBufferMaxLen, defaultBufferMaxAge),
	}
}

// Run starts the hub event loop. It should be run as a goroutine.
// It exits when Shutdown is called or the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.buffer.Stop()

	for {
		select {
		case <-ctx.Done():
			h.drainClients()

			return
		case <-h.shutdown:
			h.drainClients()

			return
		case client := <-h.register:
			h.add(client)
		case client := <-h.unregister:
			if h.clients[client] {
				h.remove(client)
			}
			h.log.WithField("total", len(h.clients)).Debug("client unregistered")
		case m := <-h.broadcast:
			for client := range h.clients {
				if client.UserID != m.userID {
					continue
				}

				select {
				case client.send <- m.msg:
				default:
					// Slow consumer: drop it rather than stall everyone else.
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) add(client *Client) {
	if len(h.clients) >= maxClients {
		h.log.Warn("global connection limit reached, dropping client")
		client.closeSend()

		return
	}

	if h.perUser[client.UserID] >= maxClientsPerUser {
		h.log.WithField("user_id", client.UserID).Warn("per-user connection limit reached, dropping client")
		client.closeSend()

		return
	}

	h.clients[client] = true
	h.perUser[client.UserID]++
	h.updateCount()
	h.log.WithFields(logrus.Fields{
		"user_id": client.UserID,
		"total":   len(h.clients),
	}).Info("client registered")
}

func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	client.closeSend()

	h.perUser[client.UserID]--
	if h.perUser[client.UserID] <= 0 {
		delete(h.perUser, client.UserID)
	}

	h.updateCount()
}

func (h *Hub) updateCount() {
	h.count.Store(int64(len(h.clients)))
	metrics.WSConnections.Set(float64(len(h.clients)))
}

// Publish assigns the event a per-user sequence id, stores it for replay and
// queues it for the user's clients. Never blocks; drops when the hub is saturated.
func (h *Hub) Publish(event models.TaskEvent) {
	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	evt := Event{
		Type:   EventType(event.Action),
		ID:     h.seq.Next(event.UserID),
		UserID: event.UserID,
		Data:   event,
		Time:   time.Now().UTC(),
	}

	msg, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal event")
		return
	}

	h.buffer.Append(&evt)

	select {
	case h.broadcast <- userMessage{userID: event.UserID, msg: msg}:
	default:
		h.log.WithField("user_id", event.UserID).Warn("broadcast channel full, dropping event")
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	default:
		h.log.Warn("register channel full, dropping client")
		c.closeSend()
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	default:
		// Run loop already exited; client cleanup happened in Run shutdown.
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Shutdown initiates a graceful WebSocket drain and blocks until it completes
// or the drain timeout expires.
func (h *Hub) Shutdown() {
	close(h.shutdown)
	<-h.done
}

// drainClients tells every client the server is going away, waits for their
// send buffers to flush, then closes them.
func (h *Hub) drainClients() {
	if len(h.clients) > 0 {
		h.log.WithField("clients", len(h.clients)).Info("draining WebSocket clients")

		shutdownMsg := []byte(`{"type":"shutdown","message":"server shutting down"}`)
		for client := range h.clients {
			select {
			case client.send <- shutdownMsg:
			default:
			}
		}

		h.waitFlushed()
	}

	for client := range h.clients {
		client.closeSend()
		delete(h.clients, client)
	}

	h.perUser = make(map[string]int)
	h.updateCount()
}

func (h *Hub) waitFlushed() {
	deadline := time.After(drainTimeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		flushed := true
		for client := range h.clients {
			if len(client.send) > 0 {
				flushed = false
				break
			}
		}

		if flushed {
			return
		}

		select {
		case <-deadline:
			h.log.Warn("WebSocket drain timeout, closing remaining clients")
			return
		case <-ticker.C:
		}
	}
}

// ReplayEvents sends buffered events after lastEventID to the client.
// Returns false if the requested ID is older than anything still buffered.
func (h *Hub) ReplayEvents(client *Client, lastEventID uint64) bool {
	oldest := h.buffer.OldestID(client.UserID)
	if oldest > 0 && lastEventID > 0 && lastEventID < oldest-1 {
		return false
	}

	for _, evt := range h.buffer.Since(client.UserID, lastEventID) {
		msg, err := json.Marshal(evt)
		if err != nil {
			continue
		}

		select {
		case client.send <- msg:
		default:
			return true // channel full, stop replay
		}
	}

	return true
}
