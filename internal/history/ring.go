package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onurbyrmv0/chat-relay/internal/domain"
)

// Ring is the in-memory fallback for the durable store, partitioned by
// room: each room keeps its own bounded tail of recent messages, so
// degradation while the database is down is per-room rather than
// global. Messages keep their true room tag so nothing is misattributed
// once the durable store recovers.
type Ring struct {
	mu    sync.RWMutex
	depth int
	rooms map[string][]domain.Message
}

// NewRing creates a fallback buffer retaining up to depth messages per room.
func NewRing(depth int) *Ring {
	if depth <= 0 {
		depth = 100
	}
	return &Ring{
		depth: depth,
		rooms: make(map[string][]domain.Message),
	}
}

// Append records a message in its room's tail, assigning a transient id
// and timestamp when the caller did not.
func (r *Ring) Append(msg domain.Message) domain.Message {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tail := append(r.rooms[msg.Room], msg)
	if len(tail) > r.depth {
		tail = tail[len(tail)-r.depth:]
	}
	r.rooms[msg.Room] = tail
	return msg
}

// Load returns up to limit of the room's most recent messages, oldest first.
func (r *Ring) Load(room string, limit int) []domain.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tail := r.rooms[room]
	if limit > 0 && len(tail) > limit {
		tail = tail[len(tail)-limit:]
	}

	out := make([]domain.Message, len(tail))
	copy(out, tail)
	return out
}

// Clear drops the room's buffered messages and returns the count removed.
func (r *Ring) Clear(room string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.rooms[room])
	delete(r.rooms, room)
	return n
}

// Len returns the number of buffered messages for room.
func (r *Ring) Len(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}
