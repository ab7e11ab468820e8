// Package hub owns the live WebSocket connections and fans events out
// to rooms. Room membership is not tracked here; it is resolved from
// the connection registry on every broadcast so presence has a single
// source of truth.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/onurbyrmv0/chat-relay/internal/domain"
	"github.com/onurbyrmv0/chat-relay/internal/registry"
	"github.com/onurbyrmv0/chat-relay/pkg/log"
)

// Hub tracks connected clients and delivers events to them. Delivery is
// best-effort and non-blocking per recipient: a client with a full send
// buffer is dropped and unregistered rather than allowed to stall the
// room.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client // connID -> client
	registry registry.Registry
}

// NewHub creates a hub resolving room membership from reg.
func NewHub(reg registry.Registry) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		registry: reg,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
	l := log.L()
	l.Debug().Str(log.FieldConnID, client.ID).Msg("client registered")
}

// Unregister removes a client and closes its send channel. Safe to call
// twice; the second call is a no-op.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.mu.Unlock()
	l := log.L()
	l.Debug().Str(log.FieldConnID, client.ID).Msg("client unregistered")
}

// ToRoom delivers an event to every connection currently in room.
func (h *Hub) ToRoom(room, event string, payload interface{}) {
	h.ToRoomExcept(room, "", event, payload)
}

// ToRoomExcept delivers an event to every connection in room except one
// (used for join/leave notifications that must not echo to the mover).
func (h *Hub) ToRoomExcept(room, excludeConnID, event string, payload interface{}) {
	data, err := json.Marshal(domain.NewOutEvent(event, payload))
	if err != nil {
		l := log.L()
		l.Error().Err(err).Str(log.FieldEvent, event).Msg("failed to marshal event")
		return
	}

	members := h.registry.ListByRoom(room)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, member := range members {
		if member.ConnID == excludeConnID {
			continue
		}
		if client, ok := h.clients[member.ConnID]; ok {
			h.deliver(client, data)
		}
	}
}

// ToAll delivers an event to every live connection.
func (h *Hub) ToAll(event string, payload interface{}) {
	data, err := json.Marshal(domain.NewOutEvent(event, payload))
	if err != nil {
		l := log.L()
		l.Error().Err(err).Str(log.FieldEvent, event).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		h.deliver(client, data)
	}
}

// ToConn delivers an event to a single connection.
func (h *Hub) ToConn(connID, event string, payload interface{}) {
	data, err := json.Marshal(domain.NewOutEvent(event, payload))
	if err != nil {
		l := log.L()
		l.Error().Err(err).Str(log.FieldEvent, event).Msg("failed to marshal event")
		return
	}

	h.sendRaw(connID, data)
}

// sendRaw queues a pre-marshalled frame for one connection. The read
// lock is held across the send: Unregister closes the channel under the
// write lock, so a send can never interleave with the close.
func (h *Hub) sendRaw(connID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if client, ok := h.clients[connID]; ok {
		h.deliver(client, data)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// deliver queues data for one client without blocking. Callers hold at
// least the read lock, so the slow-client unregister is deferred to a
// goroutine.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		go h.Unregister(client)
	}
}
