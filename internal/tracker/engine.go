package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/pai-tracker/internal/catalog"
	"github.com/p-n-ai/pai-tracker/internal/progress"
)

// EngineConfig holds dependencies for the merge engine.
type EngineConfig struct {
	Catalog  catalog.Store
	Progress progress.Store
	Events   EventLogger // optional; updates are not recorded when nil
}

// Engine produces merged topic views and applies field updates. It holds no
// state of its own; every call reads fresh from the stores.
type Engine struct {
	catalog  catalog.Store
	progress progress.Store
	events   EventLogger
}

// NewEngine creates a new merge engine. Missing stores default to in-memory
// implementations.
func NewEngine(cfg EngineConfig) *Engine {
	cat := cfg.Catalog
	if cat == nil {
		cat = catalog.NewMemoryStore()
	}
	prog := cfg.Progress
	if prog == nil {
		prog = progress.NewMemoryStore()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	return &Engine{
		catalog:  cat,
		progress: prog,
		events:   events,
	}
}

// Topic returns the named topic merged with the user's progress. An empty
// userID yields the default view. For a known user the progress record is
// created if it does not exist yet.
func (e *Engine) Topic(ctx context.Context, userID, topicName string) (MergedTopic, error) {
	t, err := e.catalog.TopicByName(ctx, topicName)
	if err != nil {
		if errors.Is(err, catalog.ErrTopicNotFound) {
			return MergedTopic{}, fmt.Errorf("topic %q: %w", topicName, ErrNotFound)
		}
		return MergedTopic{}, storeErr("get topic", err)
	}

	if userID == "" {
		return mergeTopic(t, progress.TopicProgress{}), nil
	}

	if err := e.progress.EnsureRecord(ctx, userID); err != nil {
		return MergedTopic{}, storeErr("ensure progress record", err)
	}
	tp, _, err := e.progress.TopicProgress(ctx, userID, t.ID)
	if err != nil {
		return MergedTopic{}, storeErr("get topic progress", err)
	}

	return mergeTopic(t, tp), nil
}

// Topics returns every catalog topic, in catalog order, merged with the
// user's progress.
func (e *Engine) Topics(ctx context.Context, userID string) ([]MergedTopic, error) {
	topics, rec, err := loadState(ctx, e.catalog, e.progress, userID)
	if err != nil {
		return nil, err
	}

	merged := make([]MergedTopic, len(topics))
	for i, t := range topics {
		merged[i] = mergeTopic(t, rec.Topics[t.ID])
	}
	return merged, nil
}

// ApplyFieldUpdate validates u against the catalog, applies it to the user's
// progress and returns the topic as stored after the change. A rejected
// update leaves the stores untouched.
func (e *Engine) ApplyFieldUpdate(ctx context.Context, userID string, u FieldUpdate) (MergedTopic, error) {
	if !u.Field.Valid() {
		return MergedTopic{}, fmt.Errorf("%w: %q", ErrInvalidField, u.Field)
	}
	apply, err := mutationFor(u)
	if err != nil {
		return MergedTopic{}, err
	}
	if userID == "" {
		return MergedTopic{}, ErrUnauthenticated
	}

	t, err := e.catalog.TopicByID(ctx, u.TopicID)
	if err != nil {
		if errors.Is(err, catalog.ErrTopicNotFound) {
			return MergedTopic{}, fmt.Errorf("%w: topic %q", ErrInvalidReference, u.TopicID)
		}
		return MergedTopic{}, storeErr("get topic", err)
	}
	if !t.HasQuestion(u.QuestionID) {
		return MergedTopic{}, fmt.Errorf("%w: question %q in topic %q", ErrInvalidReference, u.QuestionID, u.TopicID)
	}

	if err := e.progress.EnsureTopic(ctx, userID, t.ID); err != nil {
		return MergedTopic{}, storeErr("ensure topic progress", err)
	}
	if err := apply(ctx, e.progress, userID, t.ID, u.QuestionID); err != nil {
		return MergedTopic{}, storeErr("apply "+string(u.Field), err)
	}

	tp, _, err := e.progress.TopicProgress(ctx, userID, t.ID)
	if err != nil {
		return MergedTopic{}, storeErr("reload topic progress", err)
	}

	slog.Info("field updated",
		"user_id", userID,
		"topic_id", t.ID,
		"question_id", u.QuestionID,
		"field", string(u.Field),
	)
	if err := e.events.LogEvent(ctx, Event{
		UserID:     userID,
		TopicID:    t.ID,
		QuestionID: u.QuestionID,
		Field:      u.Field,
		Value:      u.Value,
	}); err != nil {
		slog.Warn("failed to record progress event", "user_id", userID, "error", err)
	}

	return mergeTopic(t, tp), nil
}

type mutation func(ctx context.Context, s progress.Store, userID, topicID, questionID string) error

// mutationFor checks the value type of u and returns the store primitive
// that applies it.
func mutationFor(u FieldUpdate) (mutation, error) {
	switch u.Field {
	case FieldDone, FieldBookmark:
		on, ok := u.Value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs a boolean, got %T", ErrInvalidValue, u.Field, u.Value)
		}
		mark := progress.MarkDone
		if u.Field == FieldBookmark {
			mark = progress.MarkBookmark
		}
		if on {
			return func(ctx context.Context, s progress.Store, userID, topicID, questionID string) error {
				return s.AddMark(ctx, userID, topicID, mark, questionID)
			}, nil
		}
		return func(ctx context.Context, s progress.Store, userID, topicID, questionID string) error {
			return s.RemoveMark(ctx, userID, topicID, mark, questionID)
		}, nil

	case FieldNotes:
		var text string
		switch v := u.Value.(type) {
		case nil:
		case string:
			text = v
		default:
			return nil, fmt.Errorf("%w: %s needs a string, got %T", ErrInvalidValue, u.Field, u.Value)
		}
		if text == "" {
			return func(ctx context.Context, s progress.Store, userID, topicID, questionID string) error {
				return s.DeleteNote(ctx, userID, topicID, questionID)
			}, nil
		}
		return func(ctx context.Context, s progress.Store, userID, topicID, questionID string) error {
			return s.SetNote(ctx, userID, topicID, questionID, text)
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidField, u.Field)
}

// loadState reads the catalog and the user's record concurrently. The record
// is empty when userID is empty or the user has none.
func loadState(ctx context.Context, cat catalog.Store, prog progress.Store, userID string) ([]catalog.Topic, progress.Record, error) {
	var (
		topics []catalog.Topic
		rec    = progress.Record{UserID: userID}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		topics, err = cat.Topics(gctx)
		if err != nil {
			return storeErr("list topics", err)
		}
		return nil
	})
	if userID != "" {
		g.Go(func() error {
			r, found, err := prog.Record(gctx, userID)
			if err != nil {
				return storeErr("get progress record", err)
			}
			if found {
				rec = r
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, progress.Record{}, err
	}
	return topics, rec, nil
}
