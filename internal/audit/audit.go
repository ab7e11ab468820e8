package audit

import (
	"context"

	"github.com/onurbyrmv0/chat-relay/pkg/log"
)

// Audit actions for the relay.
const (
	ActionJoin            = "relay.join"
	ActionSwitchRoom      = "relay.switch_room"
	ActionSendMessage     = "relay.send_message"
	ActionDisconnect      = "relay.disconnect"
	ActionClearChat       = "relay.clear_chat"
	ActionClearChatDenied = "relay.clear_chat_denied"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, nickname, room, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldNickname, nickname).
		Str(log.FieldRoom, room).
		Msg(msg)
}

// LogWithDetail emits an audit log with an extra detail field.
func LogWithDetail(ctx context.Context, action, nickname, room, detail, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldNickname, nickname).
		Str(log.FieldRoom, room).
		Str(FieldDetail, detail).
		Msg(msg)
}
