package service

import (
	"context"

	"github.com/onurbyrmv0/chat-relay/internal/domain"
)

// Broadcaster fans events out to connections. Implemented by hub.Hub.
type Broadcaster interface {
	ToRoom(room, event string, payload interface{})
	ToRoomExcept(room, excludeConnID, event string, payload interface{})
	ToAll(event string, payload interface{})
	ToConn(connID, event string, payload interface{})
}

// RelayService orchestrates inbound connection events: presence,
// history fan-out, persistence with fallback, and admin clears.
type RelayService interface {
	HandleJoin(ctx context.Context, connID string, p domain.JoinPayload)
	HandleSwitchRoom(ctx context.Context, connID, newRoom string)
	HandleTyping(ctx context.Context, connID string)
	HandleStopTyping(ctx context.Context, connID string)
	HandleSendMessage(ctx context.Context, connID string, p domain.SendMessagePayload)
	HandleClearChat(ctx context.Context, connID, secret string)
	HandleDisconnect(ctx context.Context, connID string)

	// Start performs the initial store availability check and begins the
	// reconnect loop if the store is down.
	Start(ctx context.Context)

	// StoreAvailable reports whether the durable store is currently usable.
	StoreAvailable() bool
}
