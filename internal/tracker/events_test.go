package tracker_test

import (
	"context"
	"testing"

	"github.com/p-n-ai/pai-tracker/internal/tracker"
)

func TestMemoryEventLogger_LogEvent(t *testing.T) {
	logger := tracker.NewMemoryEventLogger()

	err := logger.LogEvent(context.Background(), tracker.Event{
		UserID:     "user-1",
		TopicID:    "topic-1",
		QuestionID: "q-1",
		Field:      tracker.FieldNotes,
		Value:      "two pointers",
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].Field != tracker.FieldNotes {
		t.Errorf("Field = %q, want Notes", events[0].Field)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMemoryEventLogger_RequiresUser(t *testing.T) {
	logger := tracker.NewMemoryEventLogger()

	if err := logger.LogEvent(context.Background(), tracker.Event{Field: tracker.FieldDone}); err == nil {
		t.Fatal("expected error for missing user")
	}
}

func TestPostgresEventLogger_LogEvent_NilPool(t *testing.T) {
	logger := tracker.NewPostgresEventLogger(nil)

	err := logger.LogEvent(context.Background(), tracker.Event{
		UserID: "user-1",
		Field:  tracker.FieldDone,
		Value:  true,
	})
	if err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func TestNopEventLogger(t *testing.T) {
	if err := (tracker.NopEventLogger{}).LogEvent(context.Background(), tracker.Event{}); err != nil {
		t.Errorf("LogEvent() error = %v, want nil", err)
	}
}
