package domain

import "encoding/json"

// Inbound event names (client -> server).
const (
	EventJoin        = "join"
	EventSwitchRoom  = "switchRoom"
	EventTyping      = "typing"
	EventStopTyping  = "stopTyping"
	EventSendMessage = "sendMessage"
	EventClearChat   = "clearChat"
)

// Outbound event names (server -> client).
const (
	EventHistory        = "history"
	EventNotification   = "notification"
	EventUpdateUserList = "updateUserList"
	EventUserTyping     = "userTyping"
	EventUserStopTyping = "userStopTyping"
	EventMessage        = "message"
	EventRoomCreated    = "roomCreated"
	EventRoomDeleted    = "roomDeleted"
	EventUserDeleted    = "userDeleted"
	EventError          = "error"
)

// Error codes carried on error events.
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// DefaultRoom is the room a connection lands in when join carries none.
const DefaultRoom = "General"

// Envelope is the wire frame for inbound events. Data is decoded per
// event name; malformed payloads are rejected rather than trusted.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// OutEvent is the wire frame for outbound events.
type OutEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// NewOutEvent builds an outbound event frame.
func NewOutEvent(event string, data interface{}) *OutEvent {
	return &OutEvent{Event: event, Data: data}
}

// Client -> server payloads.

type JoinPayload struct {
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
	Room     string `json:"room"`
}

type SwitchRoomPayload struct {
	Room string `json:"room"`
}

type SendMessagePayload struct {
	Content string      `json:"content"`
	Type    MessageType `json:"type"`
	FileURL string      `json:"fileUrl"`
	ReplyTo *ReplyRef   `json:"replyTo"`
	// Room is accepted on the wire for compatibility but never trusted;
	// the relay always substitutes the server-known room.
	Room string `json:"room"`
}

type ClearChatPayload struct {
	Secret string `json:"secret"`
}

// ErrorPayload is sent back to a connection on malformed input.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorEvent builds an error event for one connection.
func NewErrorEvent(code, message string) *OutEvent {
	return NewOutEvent(EventError, &ErrorPayload{Code: code, Message: message})
}
