package domain

import "time"

// MessageType classifies chat message content.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
	MessageTypeAudio MessageType = "audio"
	MessageTypeFile  MessageType = "file"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo, MessageTypeAudio, MessageTypeFile:
		return true
	}
	return false
}

// ReplyRef references a prior message being replied to.
type ReplyRef struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Content  string `json:"content"`
}

// Message is one chat message. Room and Timestamp are always assigned
// server-side; client-supplied values are ignored.
type Message struct {
	ID        string      `json:"id"`
	Nickname  string      `json:"nickname"`
	Avatar    string      `json:"avatar"`
	Room      string      `json:"room"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	FileURL   string      `json:"fileUrl,omitempty"`
	ReplyTo   *ReplyRef   `json:"replyTo,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
