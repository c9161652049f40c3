// Package hub provides a thread-safe websocket broadcast hub
// using the channel-based fan-out pattern.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/banshee-data/proximity.report/internal/monitoring"
)

// Event types pushed to connected dashboards.
const (
	EventReading   = "reading"
	EventDistance  = "distance"
	EventThreshold = "threshold"
)

// Event is one live sample pushed over the websocket.
type Event struct {
	Type  string    `json:"type"`
	Value float64   `json:"value"`
	Time  time.Time `json:"ts"`
}

// Hub maintains the set of active clients and broadcasts events to them.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan []byte

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for client count (read-only access from outside)
	mu sync.RWMutex

	quit     chan struct{}
	quitOnce sync.Once
}

// New creates a new Hub.
func New() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
}

// Run starts the hub's main loop.
// This should be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			monitoring.Logf("hub: client connected (%d total)", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			monitoring.Logf("hub: client disconnected (%d remaining)", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's buffer is full, they are too slow. Drop them.
					close(client.send)
					delete(h.clients, client)
					monitoring.Logf("hub: dropped slow client")
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop shuts down the hub loop and disconnects all clients.
func (h *Hub) Stop() {
	h.quitOnce.Do(func() { close(h.quit) })
}

// Broadcast sends raw bytes to all connected clients. A full broadcast
// queue drops the message rather than blocking the producer.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		monitoring.Logf("hub: broadcast channel full, dropping message")
	}
}

// BroadcastEvent encodes and broadcasts one live sample.
func (h *Hub) BroadcastEvent(eventType string, value float64, ts time.Time) error {
	data, err := json.Marshal(Event{Type: eventType, Value: value, Time: ts})
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
