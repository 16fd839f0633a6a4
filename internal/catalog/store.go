package catalog

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Store persists the catalog.
type Store interface {
	AddTopic(ctx context.Context, nt NewTopic) (Topic, error)
	Topics(ctx context.Context) ([]Topic, error)
	TopicByName(ctx context.Context, name string) (Topic, error)
	TopicByID(ctx context.Context, id string) (Topic, error)
	HealthCheck(ctx context.Context) error
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	topics map[string]Topic
	byName map[string]string
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory catalog store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		topics: make(map[string]Topic),
		byName: make(map[string]string),
	}
}

func (s *MemoryStore) AddTopic(_ context.Context, nt NewTopic) (Topic, error) {
	if err := nt.Validate(); err != nil {
		return Topic{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[nt.Name]; ok {
		return Topic{}, ErrDuplicateTopic
	}

	t := buildTopic(nt)
	s.topics[t.ID] = t
	s.byName[t.Name] = t.ID
	return cloneTopic(t), nil
}

func (s *MemoryStore) Topics(_ context.Context) ([]Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topics := make([]Topic, 0, len(s.topics))
	for _, t := range s.topics {
		topics = append(topics, cloneTopic(t))
	}
	SortTopics(topics)
	return topics, nil
}

func (s *MemoryStore) TopicByName(_ context.Context, name string) (Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[NormalizeName(name)]
	if !ok {
		return Topic{}, ErrTopicNotFound
	}
	return cloneTopic(s.topics[id]), nil
}

func (s *MemoryStore) TopicByID(_ context.Context, id string) (Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.topics[id]
	if !ok {
		return Topic{}, ErrTopicNotFound
	}
	return cloneTopic(t), nil
}

func (s *MemoryStore) HealthCheck(context.Context) error {
	return nil
}

// SortTopics orders topics by position, then name.
func SortTopics(topics []Topic) {
	slices.SortStableFunc(topics, func(a, b Topic) int {
		if a.Position != b.Position {
			return a.Position - b.Position
		}
		return strings.Compare(a.Name, b.Name)
	})
}

func buildTopic(nt NewTopic) Topic {
	t := Topic{
		ID:        uuid.NewString(),
		Name:      nt.Name,
		Position:  nt.Position,
		Questions: make([]Question, 0, len(nt.Questions)),
	}
	for _, nq := range nt.Questions {
		urls := nq.URLs
		if urls == nil {
			urls = []string{}
		}
		t.Questions = append(t.Questions, Question{
			ID:      uuid.NewString(),
			Problem: nq.Problem,
			URLs:    slices.Clone(urls),
		})
	}
	return t
}

func cloneTopic(t Topic) Topic {
	out := t
	out.Questions = make([]Question, len(t.Questions))
	for i, q := range t.Questions {
		q.URLs = slices.Clone(q.URLs)
		out.Questions[i] = q
	}
	return out
}
