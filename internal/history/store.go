// Package history persists and retrieves chat messages. The durable
// store is GORM-backed; the ring buffer substitutes for it while the
// database is unreachable. The relay, not the store, decides which
// implementation is active.
package history

import (
	"context"
	"errors"

	"github.com/onurbyrmv0/chat-relay/internal/domain"
)

var (
	// ErrPersist wraps durable store write failures. The message is
	// still broadcast; the loss is logged, not surfaced to the sender.
	ErrPersist = errors.New("history: persist failed")

	// ErrUnavailable indicates the durable store cannot be reached.
	ErrUnavailable = errors.New("history: store unavailable")
)

// Unavailable is a Store without a backing database. Every call fails
// with ErrUnavailable, which keeps the relay on the fallback ring until
// a real store can be constructed.
type Unavailable struct{}

func (Unavailable) Load(context.Context, string, int) ([]domain.Message, error) {
	return nil, ErrUnavailable
}

func (Unavailable) Append(context.Context, domain.Message) (domain.Message, error) {
	return domain.Message{}, ErrPersist
}

func (Unavailable) Clear(context.Context, string) (int64, error) {
	return 0, ErrUnavailable
}

func (Unavailable) Ping(context.Context) error {
	return ErrUnavailable
}

// Store is the durable message log contract.
type Store interface {
	// Load returns up to limit messages for room, oldest first.
	Load(ctx context.Context, room string, limit int) ([]domain.Message, error)

	// Append persists a message, assigning id and the authoritative
	// timestamp at the moment of persistence, and returns the stored form.
	Append(ctx context.Context, msg domain.Message) (domain.Message, error)

	// Clear removes all messages for room and returns the count removed.
	Clear(ctx context.Context, room string) (int64, error)

	// Ping checks connectivity to the backing store.
	Ping(ctx context.Context) error
}
