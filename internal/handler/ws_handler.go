// Package handler exposes the relay over HTTP: the WebSocket endpoint
// for live traffic and the REST surface for accounts, rooms, uploads
// and administration.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/onurbyrmv0/chat-relay/internal/config"
	"github.com/onurbyrmv0/chat-relay/internal/domain"
	"github.com/onurbyrmv0/chat-relay/internal/hub"
	"github.com/onurbyrmv0/chat-relay/internal/service"
	"github.com/onurbyrmv0/chat-relay/pkg/log"
)

// WSHandler upgrades connections and dispatches inbound events to the
// relay. Each connection's events run on its own read pump, so they are
// handled one at a time in receipt order.
type WSHandler struct {
	hub      *hub.Hub
	relay    service.RelayService
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
	baseCtx  context.Context
}

// NewWSHandler creates the WebSocket handler.
func NewWSHandler(ctx context.Context, h *hub.Hub, relay service.RelayService, cfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:   h,
		relay: relay,
		cfg:   cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		baseCtx: ctx,
	}
}

// Handle upgrades the request and starts the connection's pumps. The
// HTTP request context dies with the handshake, so relay calls run on
// the handler's base context instead.
func (h *WSHandler) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.cfg)
	h.hub.Register(client)

	go client.WritePump()
	go func() {
		client.ReadPump(h.dispatch)
		h.relay.HandleDisconnect(h.baseCtx, client.ID)
	}()
}

// dispatch decodes one inbound frame and routes it. Unknown events and
// malformed payloads produce an error event for this connection only.
func (h *WSHandler) dispatch(client *hub.Client, raw []byte) {
	ctx := h.baseCtx

	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		l := log.Ctx(ctx)
		l.Debug().Err(err).Str(log.FieldConnID, client.ID).Msg("malformed frame")
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "malformed frame"))
		return
	}

	switch env.Event {
	case domain.EventJoin:
		var p domain.JoinPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.Nickname == "" {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "invalid join payload"))
			return
		}
		h.relay.HandleJoin(ctx, client.ID, p)

	case domain.EventSwitchRoom:
		var p domain.SwitchRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "invalid switchRoom payload"))
			return
		}
		h.relay.HandleSwitchRoom(ctx, client.ID, p.Room)

	case domain.EventTyping:
		h.relay.HandleTyping(ctx, client.ID)

	case domain.EventStopTyping:
		h.relay.HandleStopTyping(ctx, client.ID)

	case domain.EventSendMessage:
		var p domain.SendMessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "invalid sendMessage payload"))
			return
		}
		h.relay.HandleSendMessage(ctx, client.ID, p)

	case domain.EventClearChat:
		var p domain.ClearChatPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "invalid clearChat payload"))
			return
		}
		h.relay.HandleClearChat(ctx, client.ID, p.Secret)

	default:
		l := log.Ctx(ctx)
		l.Debug().Str(log.FieldEvent, env.Event).Str(log.FieldConnID, client.ID).Msg("unknown event")
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "unknown event: "+env.Event))
	}
}
