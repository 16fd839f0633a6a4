package progress

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Store persists progress records. Creation is create-if-absent and every
// mutation is a single atomic primitive; no implementation reads a whole
// entry back in order to modify it.
//
// AddMark and SetNote fail with ErrNoTopicProgress when the entry is missing.
// RemoveMark and DeleteNote are no-ops when there is nothing to remove.
type Store interface {
	EnsureRecord(ctx context.Context, userID string) error
	EnsureTopic(ctx context.Context, userID, topicID string) error
	Record(ctx context.Context, userID string) (Record, bool, error)
	TopicProgress(ctx context.Context, userID, topicID string) (TopicProgress, bool, error)
	AddMark(ctx context.Context, userID, topicID string, mark Mark, questionID string) error
	RemoveMark(ctx context.Context, userID, topicID string, mark Mark, questionID string) error
	SetNote(ctx context.Context, userID, topicID, questionID, text string) error
	DeleteNote(ctx context.Context, userID, topicID, questionID string) error
	Users(ctx context.Context) ([]string, error)
	HealthCheck(ctx context.Context) error
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	records map[string]map[string]*TopicProgress
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]map[string]*TopicProgress),
	}
}

func (s *MemoryStore) EnsureRecord(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureRecordLocked(userID)
	return nil
}

func (s *MemoryStore) EnsureTopic(_ context.Context, userID, topicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	topics := s.ensureRecordLocked(userID)
	if _, ok := topics[topicID]; !ok {
		tp := NewTopicProgress(topicID)
		topics[topicID] = &tp
	}
	return nil
}

func (s *MemoryStore) Record(_ context.Context, userID string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topics, ok := s.records[userID]
	if !ok {
		return Record{}, false, nil
	}
	rec := Record{UserID: userID, Topics: make(map[string]TopicProgress, len(topics))}
	for id, tp := range topics {
		rec.Topics[id] = tp.clone()
	}
	return rec, true, nil
}

func (s *MemoryStore) TopicProgress(_ context.Context, userID, topicID string) (TopicProgress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tp, ok := s.records[userID][topicID]
	if !ok {
		return TopicProgress{}, false, nil
	}
	return tp.clone(), true, nil
}

func (s *MemoryStore) AddMark(_ context.Context, userID, topicID string, mark Mark, questionID string) error {
	if !mark.Valid() {
		return fmt.Errorf("unknown mark %q", mark)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tp, ok := s.records[userID][topicID]
	if !ok {
		return ErrNoTopicProgress
	}
	tp.set(mark)[questionID] = struct{}{}
	return nil
}

func (s *MemoryStore) RemoveMark(_ context.Context, userID, topicID string, mark Mark, questionID string) error {
	if !mark.Valid() {
		return fmt.Errorf("unknown mark %q", mark)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tp, ok := s.records[userID][topicID]; ok {
		delete(tp.set(mark), questionID)
	}
	return nil
}

func (s *MemoryStore) SetNote(_ context.Context, userID, topicID, questionID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tp, ok := s.records[userID][topicID]
	if !ok {
		return ErrNoTopicProgress
	}
	tp.Notes[questionID] = text
	return nil
}

func (s *MemoryStore) DeleteNote(_ context.Context, userID, topicID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tp, ok := s.records[userID][topicID]; ok {
		delete(tp.Notes, questionID)
	}
	return nil
}

func (s *MemoryStore) Users(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0, len(s.records))
	for id := range s.records {
		users = append(users, id)
	}
	slices.Sort(users)
	return users, nil
}

func (s *MemoryStore) HealthCheck(context.Context) error {
	return nil
}

func (s *MemoryStore) ensureRecordLocked(userID string) map[string]*TopicProgress {
	topics, ok := s.records[userID]
	if !ok {
		topics = make(map[string]*TopicProgress)
		s.records[userID] = topics
	}
	return topics
}
