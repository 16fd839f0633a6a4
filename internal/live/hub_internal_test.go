package live

import (
	"testing"
	"time"

	"github.com/p-n-ai/pai-tracker/internal/tracker"
)

func TestHub_DropsSlowSubscriber(t *testing.T) {
	hub := NewHub(1)

	closed := make(chan struct{})
	s := &subscriber{
		frames:    make(chan Frame, 1),
		closeSlow: func() { close(closed) },
	}
	hub.add("u1", s)

	hub.Publish("u1", tracker.MergedTopic{ID: "first"})
	hub.Publish("u1", tracker.MergedTopic{ID: "second"})

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("slow subscriber should be closed")
	}
	if got := (<-s.frames).Topic.ID; got != "first" {
		t.Errorf("buffered frame = %q, want first", got)
	}
}

func TestHub_AddRemove(t *testing.T) {
	hub := NewHub(0)
	if hub.bufferSize != defaultBufferSize {
		t.Errorf("bufferSize = %d, want %d", hub.bufferSize, defaultBufferSize)
	}

	a := &subscriber{frames: make(chan Frame, 1)}
	b := &subscriber{frames: make(chan Frame, 1)}
	hub.add("u1", a)
	hub.add("u1", b)
	if n := hub.Subscribers("u1"); n != 2 {
		t.Fatalf("Subscribers() = %d, want 2", n)
	}

	hub.remove("u1", a)
	hub.remove("u1", b)
	if _, ok := hub.subscribers["u1"]; ok {
		t.Error("empty subscriber set should be removed")
	}
}
