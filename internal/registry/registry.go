// Package registry holds the in-memory table of live connections: who
// is online, under what identity, and in which room. It is the single
// source of truth for presence; the broadcaster resolves room
// membership from it on every fan-out.
package registry

import (
	"errors"
	"sync"
)

// ErrNotRegistered is returned for operations referencing a connection
// that never joined (or already disconnected). Callers drop such events
// silently.
var ErrNotRegistered = errors.New("connection not registered")

// Entry is one live connection's presence record. Only Room mutates
// after registration.
type Entry struct {
	ConnID   string `json:"-"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
	Room     string `json:"room"`
}

// Registry tracks live connections and their current rooms.
type Registry interface {
	// Register inserts or overwrites the entry for connID (idempotent upsert).
	Register(connID, nickname, avatar, room string)

	// UpdateRoom moves a connection to newRoom and returns the previous room.
	UpdateRoom(connID, newRoom string) (string, error)

	// Unregister removes a connection and returns its last entry.
	Unregister(connID string) (Entry, error)

	// Get returns the entry for connID.
	Get(connID string) (Entry, bool)

	// ListByRoom returns the entries currently in room, in registration order.
	ListByRoom(room string) []Entry

	// Count returns the number of live connections.
	Count() int
}

// MemoryRegistry is the single-process Registry implementation. All
// mutation goes through the mutex; each connection's read pump delivers
// its events one at a time, which preserves per-connection order.
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string // connIDs in registration order
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		entries: make(map[string]*Entry),
	}
}

func (r *MemoryRegistry) Register(connID, nickname, avatar, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[connID]; ok {
		existing.Nickname = nickname
		existing.Avatar = avatar
		existing.Room = room
		return
	}

	r.entries[connID] = &Entry{
		ConnID:   connID,
		Nickname: nickname,
		Avatar:   avatar,
		Room:     room,
	}
	r.order = append(r.order, connID)
}

func (r *MemoryRegistry) UpdateRoom(connID, newRoom string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[connID]
	if !ok {
		return "", ErrNotRegistered
	}

	prev := entry.Room
	entry.Room = newRoom
	return prev, nil
}

func (r *MemoryRegistry) Unregister(connID string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[connID]
	if !ok {
		return Entry{}, ErrNotRegistered
	}

	removed := *entry
	delete(r.entries, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return removed, nil
}

func (r *MemoryRegistry) Get(connID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[connID]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

func (r *MemoryRegistry) ListByRoom(room string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Entry, 0)
	for _, id := range r.order {
		if entry := r.entries[id]; entry.Room == room {
			result = append(result, *entry)
		}
	}
	return result
}

func (r *MemoryRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
