package history

import (
	"fmt"
	"testing"

	"github.com/onurbyrmv0/chat-relay/internal/domain"
)

func TestRingAppendAssignsTransientFields(t *testing.T) {
	r := NewRing(10)

	msg := r.Append(domain.Message{Room: "General", Content: "hi"})
	if msg.ID == "" {
		t.Error("expected transient id")
	}
	if msg.Timestamp.IsZero() {
		t.Error("expected transient timestamp")
	}
}

func TestRingKeepsPerRoomTail(t *testing.T) {
	r := NewRing(3)

	for i := 0; i < 5; i++ {
		r.Append(domain.Message{Room: "General", Content: fmt.Sprintf("g%d", i)})
	}
	r.Append(domain.Message{Room: "Random", Content: "r0"})

	general := r.Load("General", 0)
	if len(general) != 3 {
		t.Fatalf("len = %d, want 3", len(general))
	}
	// Oldest first, trimmed from the head.
	if general[0].Content != "g2" || general[2].Content != "g4" {
		t.Errorf("tail = [%s .. %s], want [g2 .. g4]", general[0].Content, general[2].Content)
	}

	// Filling one room must not evict another.
	if got := r.Len("Random"); got != 1 {
		t.Errorf("Random len = %d, want 1", got)
	}
}

func TestRingLoadLimit(t *testing.T) {
	r := NewRing(10)
	for i := 0; i < 5; i++ {
		r.Append(domain.Message{Room: "General", Content: fmt.Sprintf("m%d", i)})
	}

	got := r.Load("General", 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Content != "m3" || got[1].Content != "m4" {
		t.Errorf("limited load = [%s %s], want newest two oldest-first", got[0].Content, got[1].Content)
	}
}

func TestRingLoadUnknownRoom(t *testing.T) {
	r := NewRing(10)
	if got := r.Load("nope", 50); len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestRingClear(t *testing.T) {
	r := NewRing(10)
	r.Append(domain.Message{Room: "General", Content: "a"})
	r.Append(domain.Message{Room: "General", Content: "b"})
	r.Append(domain.Message{Room: "Random", Content: "c"})

	if n := r.Clear("General"); n != 2 {
		t.Errorf("Clear = %d, want 2", n)
	}
	if r.Len("General") != 0 {
		t.Error("General not empty after clear")
	}
	if r.Len("Random") != 1 {
		t.Error("clear leaked into another room")
	}
}

func TestRingLoadReturnsCopy(t *testing.T) {
	r := NewRing(10)
	r.Append(domain.Message{Room: "General", Content: "original"})

	got := r.Load("General", 0)
	got[0].Content = "mutated"

	if again := r.Load("General", 0); again[0].Content != "original" {
		t.Error("Load exposed internal storage")
	}
}
