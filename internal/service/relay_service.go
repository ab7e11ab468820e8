package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/onurbyrmv0/chat-relay/internal/audit"
	"github.com/onurbyrmv0/chat-relay/internal/domain"
	"github.com/onurbyrmv0/chat-relay/internal/history"
	"github.com/onurbyrmv0/chat-relay/internal/registry"
	"github.com/onurbyrmv0/chat-relay/pkg/log"
)

type relayService struct {
	registry registry.Registry
	hub      Broadcaster
	durable  history.Store
	fallback *history.Ring

	adminSecret   string
	window        int
	retryInterval time.Duration

	available atomic.Bool
	retrying  atomic.Bool
	baseCtx   context.Context
	sf        singleflight.Group
}

// NewRelayService creates the relay engine.
func NewRelayService(
	reg registry.Registry,
	hub Broadcaster,
	durable history.Store,
	fallback *history.Ring,
	adminSecret string,
	window int,
	retryInterval time.Duration,
) RelayService {
	if window <= 0 {
		window = 50
	}
	if retryInterval <= 0 {
		retryInterval = 5 * time.Second
	}
	return &relayService{
		registry:      reg,
		hub:           hub,
		durable:       durable,
		fallback:      fallback,
		adminSecret:   adminSecret,
		window:        window,
		retryInterval: retryInterval,
	}
}

func (s *relayService) HandleJoin(ctx context.Context, connID string, p domain.JoinPayload) {
	room := p.Room
	if room == "" {
		room = domain.DefaultRoom
	}

	s.registry.Register(connID, p.Nickname, p.Avatar, room)
	audit.Log(ctx, audit.ActionJoin, p.Nickname, room, "connection joined")

	s.hub.ToConn(connID, domain.EventHistory, s.loadHistory(ctx, room))
	s.hub.ToRoomExcept(room, connID, domain.EventNotification,
		fmt.Sprintf("%s joined the chat", p.Nickname))
	s.hub.ToRoom(room, domain.EventUpdateUserList, s.registry.ListByRoom(room))
}

func (s *relayService) HandleSwitchRoom(ctx context.Context, connID, newRoom string) {
	if newRoom == "" {
		newRoom = domain.DefaultRoom
	}

	oldRoom, err := s.registry.UpdateRoom(connID, newRoom)
	if err != nil {
		// Event raced ahead of join; drop it.
		return
	}

	entry, _ := s.registry.Get(connID)
	audit.LogWithDetail(ctx, audit.ActionSwitchRoom, entry.Nickname, newRoom, oldRoom, "connection switched room")

	s.hub.ToRoomExcept(oldRoom, connID, domain.EventNotification,
		fmt.Sprintf("%s left the chat", entry.Nickname))
	s.hub.ToRoom(oldRoom, domain.EventUpdateUserList, s.registry.ListByRoom(oldRoom))

	s.hub.ToConn(connID, domain.EventHistory, s.loadHistory(ctx, newRoom))
	s.hub.ToRoomExcept(newRoom, connID, domain.EventNotification,
		fmt.Sprintf("%s joined the chat", entry.Nickname))
	s.hub.ToRoom(newRoom, domain.EventUpdateUserList, s.registry.ListByRoom(newRoom))
}

func (s *relayService) HandleTyping(ctx context.Context, connID string) {
	entry, ok := s.registry.Get(connID)
	if !ok {
		return
	}
	s.hub.ToRoomExcept(entry.Room, connID, domain.EventUserTyping, entry.Nickname)
}

func (s *relayService) HandleStopTyping(ctx context.Context, connID string) {
	entry, ok := s.registry.Get(connID)
	if !ok {
		return
	}
	s.hub.ToRoomExcept(entry.Room, connID, domain.EventUserStopTyping, entry.Nickname)
}

func (s *relayService) HandleSendMessage(ctx context.Context, connID string, p domain.SendMessagePayload) {
	entry, ok := s.registry.Get(connID)
	if !ok {
		return
	}

	msgType := p.Type
	if msgType == "" {
		msgType = domain.MessageTypeText
	}
	if !msgType.Valid() {
		s.hub.ToConn(connID, domain.EventError, &domain.ErrorPayload{
			Code:    domain.ErrCodeBadRequest,
			Message: "unknown message type",
		})
		return
	}

	// Room always comes from the registry, never from the payload.
	msg := domain.Message{
		Nickname:  entry.Nickname,
		Avatar:    entry.Avatar,
		Room:      entry.Room,
		Content:   p.Content,
		Type:      msgType,
		FileURL:   p.FileURL,
		ReplyTo:   p.ReplyTo,
		Timestamp: time.Now().UTC(),
	}

	audit.Log(ctx, audit.ActionSendMessage, entry.Nickname, entry.Room, "message received")

	out := msg
	if s.available.Load() {
		stored, err := s.durable.Append(ctx, msg)
		if err != nil {
			// Broadcast the unpersisted form anyway; the loss is an
			// operator concern, not the sender's.
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldRoom, entry.Room).Msg("persist failed, broadcasting transient message")
			s.markUnavailable(ctx)
			out = s.fallback.Append(msg)
		} else {
			out = stored
		}
	} else {
		out = s.fallback.Append(msg)
	}

	s.hub.ToRoom(entry.Room, domain.EventMessage, out)
}

func (s *relayService) HandleClearChat(ctx context.Context, connID, secret string) {
	entry, ok := s.registry.Get(connID)
	if !ok {
		return
	}

	if secret != s.adminSecret {
		audit.Log(ctx, audit.ActionClearChatDenied, entry.Nickname, entry.Room, "clear chat denied")
		s.hub.ToConn(connID, domain.EventNotification, "Invalid admin secret")
		return
	}

	if s.available.Load() {
		if _, err := s.durable.Clear(ctx, entry.Room); err != nil {
			l := log.Ctx(ctx)
			l.Error().Err(err).Str(log.FieldRoom, entry.Room).Msg("failed to clear durable history")
			s.markUnavailable(ctx)
			s.hub.ToConn(connID, domain.EventNotification, "Error clearing chat")
			return
		}
	} else {
		l := log.Ctx(ctx)
		l.Warn().Str(log.FieldRoom, entry.Room).
			Msg("clear requested while store unavailable, durable rows untouched")
	}
	s.fallback.Clear(entry.Room)

	audit.Log(ctx, audit.ActionClearChat, entry.Nickname, entry.Room, "room history cleared")

	s.hub.ToRoom(entry.Room, domain.EventHistory, []domain.Message{})
	s.hub.ToRoom(entry.Room, domain.EventNotification,
		fmt.Sprintf("%s chat history has been cleared by an Admin", entry.Room))
}

func (s *relayService) HandleDisconnect(ctx context.Context, connID string) {
	entry, err := s.registry.Unregister(connID)
	if err != nil {
		return
	}

	audit.Log(ctx, audit.ActionDisconnect, entry.Nickname, entry.Room, "connection left")

	s.hub.ToRoom(entry.Room, domain.EventNotification,
		fmt.Sprintf("%s left the chat", entry.Nickname))
	s.hub.ToRoom(entry.Room, domain.EventUpdateUserList, s.registry.ListByRoom(entry.Room))
}

// loadHistory returns the recent window for room from the durable store
// or, while degraded, from the fallback ring. Concurrent joins to the
// same room share one store read.
func (s *relayService) loadHistory(ctx context.Context, room string) []domain.Message {
	if !s.available.Load() {
		return s.fallback.Load(room, s.window)
	}

	result, err, _ := s.sf.Do(room, func() (interface{}, error) {
		return s.durable.Load(ctx, room, s.window)
	})
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldRoom, room).Msg("history load failed, serving fallback")
		s.markUnavailable(ctx)
		return s.fallback.Load(room, s.window)
	}

	messages := result.([]domain.Message)
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages
}
