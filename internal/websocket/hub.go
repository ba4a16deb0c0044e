// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/dinemap/internal/logging"
)

// Message types.
const (
	MessageTypeInvalidation     = "invalidation"
	MessageTypeRefreshCompleted = "refresh_completed"
	MessageTypePing             = "ping"
	MessageTypePong             = "pong"
)

const broadcastBuffer = 256

// Message is one frame sent to subscribers.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Hub fans cache events out to connected clients. Registration is
// synchronous; broadcasts are queued and delivered by RunWithContext.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*Client]struct{}
	broadcast chan Message
	now       func() time.Time
}

// NewHub creates an idle hub.
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		broadcast: make(chan Message, broadcastBuffer),
		now:       time.Now,
	}
}

// Register adds c to the broadcast set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	logging.Debug().Uint64("client", c.id).Int("total_clients", n).Msg("Websocket client connected")
}

// unregister removes c and closes its send channel. Safe to call twice.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	logging.Debug().Uint64("client", c.id).Int("total_clients", n).Msg("Websocket client disconnected")
}

// Publish queues an event for every client. It never blocks; when the
// queue is full the event is dropped.
func (h *Hub) Publish(messageType string, data any) {
	msg := Message{Type: messageType, Data: data, Timestamp: h.now().UTC()}
	select {
	case h.broadcast <- msg:
	default:
		logging.Warn().Str("message_type", messageType).Msg("Broadcast queue full, dropping event")
	}
}

// RunWithContext delivers queued events until ctx is done, then closes
// every client. It returns ctx.Err() and may be called again after
// returning, which lets a supervisor restart it.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			n := h.ClientCount()
			h.closeAllClients()
			logging.Info().
				Str("component", "websocket-hub").
				Int("clients_closed", n).
				Msg("Websocket hub stopped")
			return ctx.Err()
		case msg := <-h.broadcast:
			h.broadcastToClients(msg)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcastToClients sends msg in client ID order. Clients whose buffer
// is full are dropped.
func (h *Hub) broadcastToClients(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.sortedClients() {
		select {
		case c.send <- msg:
		default:
			close(c.send)
			delete(h.clients, c)
			logging.Warn().Uint64("client", c.id).Msg("Slow websocket client dropped")
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.sortedClients() {
		close(c.send)
		delete(h.clients, c)
	}
}

// sortedClients must be called with mu held.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}
