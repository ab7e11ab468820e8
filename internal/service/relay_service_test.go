package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/onurbyrmv0/chat-relay/internal/domain"
	"github.com/onurbyrmv0/chat-relay/internal/history"
	"github.com/onurbyrmv0/chat-relay/internal/registry"
)

type sentEvent struct {
	kind    string // room, roomExcept, all, conn
	room    string
	exclude string
	connID  string
	event   string
	payload interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []sentEvent
}

func (f *fakeBroadcaster) ToRoom(room, event string, payload interface{}) {
	f.record(sentEvent{kind: "room", room: room, event: event, payload: payload})
}

func (f *fakeBroadcaster) ToRoomExcept(room, excludeConnID, event string, payload interface{}) {
	f.record(sentEvent{kind: "roomExcept", room: room, exclude: excludeConnID, event: event, payload: payload})
}

func (f *fakeBroadcaster) ToAll(event string, payload interface{}) {
	f.record(sentEvent{kind: "all", event: event, payload: payload})
}

func (f *fakeBroadcaster) ToConn(connID, event string, payload interface{}) {
	f.record(sentEvent{kind: "conn", connID: connID, event: event, payload: payload})
}

func (f *fakeBroadcaster) record(e sentEvent) {
	f.mu.Lock()
	f.events = append(f.events, e)
	f.mu.Unlock()
}

func (f *fakeBroadcaster) byEvent(event string) []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []sentEvent
	for _, e := range f.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeBroadcaster) reset() {
	f.mu.Lock()
	f.events = nil
	f.mu.Unlock()
}

type stubStore struct {
	mu         sync.Mutex
	messages   map[string][]domain.Message
	nextID     int
	failAppend bool
	failLoad   bool
	failClear  bool
	failPing   bool
}

func newStubStore() *stubStore {
	return &stubStore{messages: make(map[string][]domain.Message)}
}

func (s *stubStore) Load(_ context.Context, room string, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failLoad {
		return nil, history.ErrUnavailable
	}
	msgs := s.messages[room]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *stubStore) Append(_ context.Context, msg domain.Message) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAppend {
		return domain.Message{}, history.ErrPersist
	}
	s.nextID++
	msg.ID = fmt.Sprintf("id-%d", s.nextID)
	msg.Timestamp = time.Now().UTC()
	s.messages[msg.Room] = append(s.messages[msg.Room], msg)
	return msg, nil
}

func (s *stubStore) Clear(_ context.Context, room string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failClear {
		return 0, history.ErrUnavailable
	}
	n := int64(len(s.messages[room]))
	delete(s.messages, room)
	return n, nil
}

func (s *stubStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failPing {
		return history.ErrUnavailable
	}
	return nil
}

func (s *stubStore) setFailing(fail bool) {
	s.mu.Lock()
	s.failAppend = fail
	s.failLoad = fail
	s.failClear = fail
	s.failPing = fail
	s.mu.Unlock()
}

func (s *stubStore) count(room string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages[room])
}

type fixture struct {
	relay RelayService
	reg   *registry.MemoryRegistry
	bc    *fakeBroadcaster
	store *stubStore
	ring  *history.Ring
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := registry.NewMemoryRegistry()
	bc := &fakeBroadcaster{}
	store := newStubStore()
	ring := history.NewRing(100)

	relay := NewRelayService(reg, bc, store, ring, "admin123", 50, 10*time.Millisecond)
	relay.Start(context.Background())
	return &fixture{relay: relay, reg: reg, bc: bc, store: store, ring: ring}
}

func (f *fixture) join(t *testing.T, connID, nickname, room string) {
	t.Helper()
	f.relay.HandleJoin(context.Background(), connID, domain.JoinPayload{
		Nickname: nickname,
		Room:     room,
	})
}

func TestJoinDefaultsToGeneral(t *testing.T) {
	f := newFixture(t)
	f.join(t, "c1", "alice", "")

	entry, ok := f.reg.Get("c1")
	if !ok || entry.Room != domain.DefaultRoom {
		t.Fatalf("entry = %+v, want registered in %s", entry, domain.DefaultRoom)
	}
}

func TestJoinSendsHistoryNotificationAndUserList(t *testing.T) {
	f := newFixture(t)
	f.store.Append(context.Background(), domain.Message{Room: "General", Nickname: "old", Content: "earlier"})

	f.join(t, "c1", "alice", "General")

	histories := f.bc.byEvent(domain.EventHistory)
	if len(histories) != 1 || histories[0].kind != "conn" || histories[0].connID != "c1" {
		t.Fatalf("history events = %+v, want one addressed to c1", histories)
	}
	if msgs := histories[0].payload.([]domain.Message); len(msgs) != 1 || msgs[0].Content != "earlier" {
		t.Errorf("history payload = %+v", histories[0].payload)
	}

	notes := f.bc.byEvent(domain.EventNotification)
	if len(notes) != 1 || notes[0].kind != "roomExcept" || notes[0].exclude != "c1" {
		t.Fatalf("notification events = %+v, want one roomExcept excluding c1", notes)
	}
	if notes[0].payload != "alice joined the chat" {
		t.Errorf("notification = %q", notes[0].payload)
	}

	lists := f.bc.byEvent(domain.EventUpdateUserList)
	if len(lists) != 1 || lists[0].kind != "room" || lists[0].room != "General" {
		t.Fatalf("user list events = %+v", lists)
	}
	if entries := lists[0].payload.([]registry.Entry); len(entries) != 1 || entries[0].Nickname != "alice" {
		t.Errorf("user list payload = %+v", lists[0].payload)
	}
}

func TestSwitchRoomNotifiesBothRooms(t *testing.T) {
	f := newFixture(t)
	f.join(t, "c1", "alice", "General")
	f.join(t, "c2", "bob", "General")
	f.bc.reset()

	f.relay.HandleSwitchRoom(context.Background(), "c1", "Random")

	notes := f.bc.byEvent(domain.EventNotification)
	if len(notes) != 2 {
		t.Fatalf("notifications = %+v, want left + joined", notes)
	}
	if notes[0].room != "General" || notes[0].payload != "alice left the chat" {
		t.Errorf("old-room notification = %+v", notes[0])
	}
	if notes[1].room != "Random" || notes[1].payload != "alice joined the chat" {
		t.Errorf("new-room notification = %+v", notes[1])
	}

	histories := f.bc.byEvent(domain.EventHistory)
	if len(histories) != 1 || histories[0].connID != "c1" {
		t.Fatalf("history events = %+v, want new-room history for the mover", histories)
	}

	lists := f.bc.byEvent(domain.EventUpdateUserList)
	if len(lists) != 2 {
		t.Fatalf("user list events = %+v, want one per room", lists)
	}
	oldList := lists[0].payload.([]registry.Entry)
	if len(oldList) != 1 || oldList[0].Nickname != "bob" {
		t.Errorf("old room list = %+v, want only bob", oldList)
	}
	newList := lists[1].payload.([]registry.Entry)
	if len(newList) != 1 || newList[0].Nickname != "alice" {
		t.Errorf("new room list = %+v, want only alice", newList)
	}
}

func TestSwitchRoomUnknownConnIsDropped(t *testing.T) {
	f := newFixture(t)
	f.relay.HandleSwitchRoom(context.Background(), "ghost", "Random")

	f.bc.mu.Lock()
	defer f.bc.mu.Unlock()
	if len(f.bc.events) != 0 {
		t.Errorf("events = %+v, want none for unknown connection", f.bc.events)
	}
}

func TestTypingRelaysNicknameExceptSender(t *testing.T) {
	f := newFixture(t)
	f.join(t, "c1", "alice", "General")
	f.bc.reset()

	f.relay.HandleTyping(context.Background(), "c1")
	f.relay.HandleStopTyping(context.Background(), "c1")

	typing := f.bc.byEvent(domain.EventUserTyping)
	if len(typing) != 1 || typing[0].exclude != "c1" || typing[0].payload != "alice" {
		t.Errorf("typing events = %+v", typing)
	}
	stopped := f.bc.byEvent(domain.EventUserStopTyping)
	if len(stopped) != 1 || stopped[0].payload != "alice" {
		t.Errorf("stopTyping events = %+v", stopped)
	}
}

func TestSendMessageUsesServerKnownRoomAndIdentity(t *testing.T) {
	f := newFixture(t)
	f.join(t, "c1", "alice", "General")
	f.bc.reset()

	f.relay.HandleSendMessage(context.Background(), "c1", domain.SendMessagePayload{
		Content: "hello",
		Room:    "Spoofed",
	})

	msgs := f.bc.byEvent(domain.EventMessage)
	if len(msgs) != 1 {
		t.Fatalf("message events = %+v", msgs)
	}
	got := msgs[0].payload.(domain.Message)
	if msgs[0].room != "General" || got.Room != "General" {
		t.Errorf("room = %q/%q, payload room must never win", msgs[0].room, got.Room)
	}
	if got.Nickname != "alice" {
		t.Errorf("nickname = %q, want registry identity", got.Nickname)
	}
	if got.Type != domain.MessageTypeText {
		t.Errorf("type = %q, want default text", got.Type)
	}
	if got.ID == "" {
		t.Error("expected persisted id on broadcast payload")
	}

	if f.store.count("General") != 1 {
		t.Error("message not persisted to durable store")
	}
}

func TestSendMessageRejectsUnknownType(t *testing.T) {
	f := newFixture(t)
	f.join(t, "c1", "alice", "General")
	f.bc.reset()

	f.relay.HandleSendMessage(context.Background(), "c1", domain.SendMessagePayload{
		Content: "hello",
		Type:    domain.MessageType("carrier-pigeon"),
	})

	errs := f.bc.byEvent(domain.EventError)
	if len(errs) != 1 || errs[0].connID != "c1" {
		t.Fatalf("error events = %+v", errs)
	}
	if len(f.bc.byEvent(domain.EventMessage)) != 0 {
		t.Error("invalid message was broadcast")
	}
}

func TestPersistFailureStillBroadcastsAndDegrades(t *testing.T) {
	f := newFixture(t)
	f.join(t, "c1", "alice", "General")
	f.bc.reset()
	f.store.setFailing(true)

	f.relay.HandleSendMessage(context.Background(), "c1", domain.SendMessagePayload{Content: "lost?"})

	msgs := f.bc.byEvent(domain.EventMessage)
	if len(msgs) != 1 {
		t.Fatal("message not broadcast after persist failure")
	}
	if msgs[0].payload.(domain.Message).Content != "lost?" {
		t.Errorf("payload = %+v", msgs[0].payload)
	}

	if f.relay.StoreAvailable() {
		t.Error("relay should be degraded after persist failure")
	}
	if f.ring.Len("General") != 1 {
		t.Error("message missing from fallback ring")
	}
}

func TestDegradedModeServesRingHistory(t *testing.T) {
	f := newFixture(t)
	f.join(t, "c1", "alice", "General")
	f.bc.reset()
	f.store.setFailing(true)

	f.relay.HandleSendMessage(context.Background(), "c1", domain.SendMessagePayload{Content: "first"})
	f.relay.HandleSendMessage(context.Background(), "c1", domain.SendMessagePayload{Content: "second"})
	f.bc.reset()

	f.join(t, "c2", "bob", "General")

	histories := f.bc.byEvent(domain.EventHistory)
	if len(histories) != 1 {
		t.Fatalf("history events = %+v", histories)
	}
	got := histories[0].payload.([]domain.Message)
	if len(got) != 2 || got[0].Content != "first" || got[1].Content != "second" {
		t.Errorf("ring history = %+v, want both buffered messages oldest-first", got)
	}
}

func TestRecoveryAfterStoreReturns(t *testing.T) {
	f := newFixture(t)
	f.join(t, "c1", "alice", "General")
	f.store.setFailing(true)

	f.relay.HandleSendMessage(context.Background(), "c1", domain.SendMessagePayload{Content: "while down"})
	if f.relay.StoreAvailable() {
		t.Fatal("expected degraded mode")
	}

	f.store.setFailing(false)

	deadline := time.Now().Add(2 * time.Second)
	for !f.relay.StoreAvailable() {
		if time.Now().After(deadline) {
			t.Fatal("relay never recovered after store returned")
		}
		time.Sleep(5 * time.Millisecond)
	}

	f.bc.reset()
	f.relay.HandleSendMessage(context.Background(), "c1", domain.SendMessagePayload{Content: "after recovery"})
	if f.store.count("General") != 1 {
		t.Error("message not persisted after recovery")
	}
}

func TestRepeatedDegradeRecoverCycles(t *testing.T) {
	f := newFixture(t)
	f.join(t, "c1", "alice", "General")

	// Every degradation must come back once the store does, even when a
	// new failure lands right as a recovery loop is winding down.
	for cycle := 0; cycle < 5; cycle++ {
		f.store.setFailing(true)
		f.relay.HandleSendMessage(context.Background(), "c1", domain.SendMessagePayload{Content: "down"})
		if f.relay.StoreAvailable() {
			t.Fatalf("cycle %d: expected degraded mode", cycle)
		}

		f.store.setFailing(false)
		deadline := time.Now().Add(2 * time.Second)
		for !f.relay.StoreAvailable() {
			if time.Now().After(deadline) {
				t.Fatalf("cycle %d: relay stuck degraded with no recovery", cycle)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestStartDegradedWhenStoreUnreachable(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	bc := &fakeBroadcaster{}
	ring := history.NewRing(100)

	relay := NewRelayService(reg, bc, history.Unavailable{}, ring, "admin123", 50, time.Hour)
	relay.Start(context.Background())

	if relay.StoreAvailable() {
		t.Error("relay should start degraded when the store is unreachable")
	}

	relay.HandleJoin(context.Background(), "c1", domain.JoinPayload{Nickname: "alice"})
	relay.HandleSendMessage(context.Background(), "c1", domain.SendMessagePayload{Content: "buffered"})

	if ring.Len(domain.DefaultRoom) != 1 {
		t.Error("message not buffered in fallback ring")
	}
	if len(bc.byEvent(domain.EventMessage)) != 1 {
		t.Error("message not broadcast while degraded")
	}
}

func TestClearChatRejectsWrongSecret(t *testing.T) {
	f := newFixture(t)
	f.join(t, "c1", "alice", "General")
	f.relay.HandleSendMessage(context.Background(), "c1", domain.SendMessagePayload{Content: "keep me"})
	f.bc.reset()

	f.relay.HandleClearChat(context.Background(), "c1", "wrong")

	notes := f.bc.byEvent(domain.EventNotification)
	if len(notes) != 1 || notes[0].kind != "conn" || notes[0].connID != "c1" {
		t.Fatalf("notifications = %+v, want private rejection", notes)
	}
	if notes[0].payload != "Invalid admin secret" {
		t.Errorf("notification = %q", notes[0].payload)
	}
	if f.store.count("General") != 1 {
		t.Error("history was cleared despite wrong secret")
	}
}

func TestClearChatClearsRoomAndAnnounces(t *testing.T) {
	f := newFixture(t)
	f.join(t, "c1", "alice", "General")
	f.relay.HandleSendMessage(context.Background(), "c1", domain.SendMessagePayload{Content: "goodbye"})
	f.bc.reset()

	f.relay.HandleClearChat(context.Background(), "c1", "admin123")

	if f.store.count("General") != 0 {
		t.Error("durable history not cleared")
	}

	histories := f.bc.byEvent(domain.EventHistory)
	if len(histories) != 1 || histories[0].kind != "room" {
		t.Fatalf("history events = %+v, want empty history to the room", histories)
	}
	if msgs := histories[0].payload.([]domain.Message); len(msgs) != 0 {
		t.Errorf("cleared history payload = %+v, want empty", msgs)
	}

	notes := f.bc.byEvent(domain.EventNotification)
	if len(notes) != 1 || notes[0].payload != "General chat history has been cleared by an Admin" {
		t.Errorf("notifications = %+v", notes)
	}
}

func TestClearChatWhileDegradedClearsRingOnly(t *testing.T) {
	f := newFixture(t)
	f.join(t, "c1", "alice", "General")
	f.relay.HandleSendMessage(context.Background(), "c1", domain.SendMessagePayload{Content: "durable"})
	f.store.setFailing(true)
	f.relay.HandleSendMessage(context.Background(), "c1", domain.SendMessagePayload{Content: "transient"})
	f.bc.reset()

	f.relay.HandleClearChat(context.Background(), "c1", "admin123")

	if f.ring.Len("General") != 0 {
		t.Error("fallback ring not cleared")
	}
	if f.store.count("General") != 1 {
		t.Error("durable rows must stay untouched while degraded")
	}
	if len(f.bc.byEvent(domain.EventHistory)) != 1 {
		t.Error("empty history not announced")
	}
}

func TestDisconnectNotifiesRoom(t *testing.T) {
	f := newFixture(t)
	f.join(t, "c1", "alice", "General")
	f.join(t, "c2", "bob", "General")
	f.bc.reset()

	f.relay.HandleDisconnect(context.Background(), "c1")

	if _, ok := f.reg.Get("c1"); ok {
		t.Error("connection still registered after disconnect")
	}

	notes := f.bc.byEvent(domain.EventNotification)
	if len(notes) != 1 || notes[0].payload != "alice left the chat" {
		t.Errorf("notifications = %+v", notes)
	}

	lists := f.bc.byEvent(domain.EventUpdateUserList)
	if len(lists) != 1 {
		t.Fatalf("user list events = %+v", lists)
	}
	if entries := lists[0].payload.([]registry.Entry); len(entries) != 1 || entries[0].Nickname != "bob" {
		t.Errorf("user list = %+v, want only bob", entries)
	}
}

func TestDisconnectUnknownConnIsSilent(t *testing.T) {
	f := newFixture(t)
	f.relay.HandleDisconnect(context.Background(), "ghost")

	f.bc.mu.Lock()
	defer f.bc.mu.Unlock()
	if len(f.bc.events) != 0 {
		t.Errorf("events = %+v, want none", f.bc.events)
	}
}
