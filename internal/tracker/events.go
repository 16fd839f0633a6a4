package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const eventTimeout = 5 * time.Second

// Event records one applied field update.
type Event struct {
	UserID     string
	TopicID    string
	QuestionID string
	Field      Field
	Value      any
	CreatedAt  time.Time
}

// EventLogger records applied field updates.
type EventLogger interface {
	LogEvent(ctx context.Context, event Event) error
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(context.Context, Event) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{
		events: []Event{},
	}
}

func (l *MemoryEventLogger) LogEvent(_ context.Context, event Event) error {
	if event.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// PostgresEventLogger inserts events into the progress_events table.
type PostgresEventLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLogger(pool *pgxpool.Pool) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool}
}

func (l *PostgresEventLogger) LogEvent(ctx context.Context, event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if event.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if !event.Field.Valid() {
		return fmt.Errorf("invalid event field %q", event.Field)
	}

	value, err := json.Marshal(event.Value)
	if err != nil {
		return fmt.Errorf("marshal event value: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`INSERT INTO progress_events (user_id, topic_id, question_id, field, value, created_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
		event.UserID,
		event.TopicID,
		event.QuestionID,
		string(event.Field),
		string(value),
		createdAt,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("progress event logged",
		"user_id", event.UserID,
		"topic_id", event.TopicID,
		"field", string(event.Field),
	)
	return nil
}
