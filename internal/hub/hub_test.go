package hub

import (
	"encoding/json"
	"testing"

	"github.com/onurbyrmv0/chat-relay/internal/config"
	"github.com/onurbyrmv0/chat-relay/internal/domain"
	"github.com/onurbyrmv0/chat-relay/internal/registry"
)

func newTestClient(h *Hub, id string) *Client {
	return NewClient(id, h, nil, config.WebSocketConfig{SendBuffer: 8})
}

func drain(t *testing.T, c *Client) domain.OutEvent {
	t.Helper()

	select {
	case data := <-c.Send:
		var evt domain.OutEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		return evt
	default:
		t.Fatal("no frame queued")
		return domain.OutEvent{}
	}
}

func TestToRoomResolvesMembershipFromRegistry(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	h := NewHub(reg)

	c1 := newTestClient(h, "c1")
	c2 := newTestClient(h, "c2")
	c3 := newTestClient(h, "c3")
	h.Register(c1)
	h.Register(c2)
	h.Register(c3)

	reg.Register("c1", "alice", "", "General")
	reg.Register("c2", "bob", "", "General")
	reg.Register("c3", "carol", "", "Random")

	h.ToRoom("General", domain.EventNotification, "hello")

	for _, c := range []*Client{c1, c2} {
		evt := drain(t, c)
		if evt.Event != domain.EventNotification || evt.Data != "hello" {
			t.Errorf("client %s got %+v", c.ID, evt)
		}
	}
	if len(c3.Send) != 0 {
		t.Error("other-room client received the event")
	}
}

func TestToRoomExceptSkipsOneConnection(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	h := NewHub(reg)

	c1 := newTestClient(h, "c1")
	c2 := newTestClient(h, "c2")
	h.Register(c1)
	h.Register(c2)
	reg.Register("c1", "alice", "", "General")
	reg.Register("c2", "bob", "", "General")

	h.ToRoomExcept("General", "c1", domain.EventNotification, "bob-only")

	if len(c1.Send) != 0 {
		t.Error("excluded connection received the event")
	}
	if evt := drain(t, c2); evt.Data != "bob-only" {
		t.Errorf("got %+v", evt)
	}
}

func TestToConnTargetsSingleClient(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	h := NewHub(reg)

	c1 := newTestClient(h, "c1")
	c2 := newTestClient(h, "c2")
	h.Register(c1)
	h.Register(c2)

	h.ToConn("c1", domain.EventError, map[string]string{"code": "BAD_REQUEST"})

	if len(c2.Send) != 0 {
		t.Error("wrong client received the event")
	}
	evt := drain(t, c1)
	if evt.Event != domain.EventError {
		t.Errorf("event = %q", evt.Event)
	}
}

func TestToAllReachesEveryClient(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	h := NewHub(reg)

	clients := []*Client{newTestClient(h, "c1"), newTestClient(h, "c2"), newTestClient(h, "c3")}
	for _, c := range clients {
		h.Register(c)
	}

	h.ToAll(domain.EventRoomCreated, map[string]string{"name": "new-room"})

	for _, c := range clients {
		if evt := drain(t, c); evt.Event != domain.EventRoomCreated {
			t.Errorf("client %s got %q", c.ID, evt.Event)
		}
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	h := NewHub(reg)

	c1 := newTestClient(h, "c1")
	h.Register(c1)
	if h.ClientCount() != 1 {
		t.Fatalf("count = %d", h.ClientCount())
	}

	h.Unregister(c1)
	h.Unregister(c1) // second call must not double-close Send

	if h.ClientCount() != 0 {
		t.Errorf("count = %d after unregister", h.ClientCount())
	}
}

func TestSendEventRacingUnregisterDoesNotPanic(t *testing.T) {
	reg := registry.NewMemoryRegistry()

	for i := 0; i < 200; i++ {
		h := NewHub(reg)
		c := newTestClient(h, "c1")
		h.Register(c)

		start := make(chan struct{})
		done := make(chan struct{}, 2)

		go func() {
			<-start
			for j := 0; j < 50; j++ {
				c.SendEvent(domain.NewOutEvent(domain.EventNotification, "racing"))
			}
			done <- struct{}{}
		}()
		go func() {
			<-start
			h.Unregister(c)
			done <- struct{}{}
		}()

		close(start)
		<-done
		<-done
	}
}

func TestToConnRacingUnregisterDoesNotPanic(t *testing.T) {
	reg := registry.NewMemoryRegistry()

	for i := 0; i < 200; i++ {
		h := NewHub(reg)
		c := newTestClient(h, "c1")
		h.Register(c)

		start := make(chan struct{})
		done := make(chan struct{}, 2)

		go func() {
			<-start
			for j := 0; j < 50; j++ {
				h.ToConn("c1", domain.EventNotification, "racing")
			}
			done <- struct{}{}
		}()
		go func() {
			<-start
			h.Unregister(c)
			done <- struct{}{}
		}()

		close(start)
		<-done
		<-done
	}
}

func TestDepartedClientGetsNoFrames(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	h := NewHub(reg)

	c1 := newTestClient(h, "c1")
	h.Register(c1)
	reg.Register("c1", "alice", "", "General")

	h.Unregister(c1)
	// Registry cleanup is the relay's job; the hub must cope with the
	// window where the registry still lists a departed connection.
	h.ToRoom("General", domain.EventNotification, "anyone there?")

	if _, ok := <-c1.Send; ok {
		t.Error("closed client received a frame")
	}
}
