// Package progress stores each user's sparse completion state: which
// questions are done or bookmarked and which carry a note.
package progress

import (
	"errors"
	"maps"
)

// ErrNoTopicProgress is returned when a mutation targets a topic the user
// has no progress entry for. Callers create it with EnsureTopic first.
var ErrNoTopicProgress = errors.New("topic progress does not exist")

// Mark names one of the per-question membership sets.
type Mark string

const (
	MarkDone     Mark = "done"
	MarkBookmark Mark = "bookmark"
)

// Valid reports whether m is a known mark.
func (m Mark) Valid() bool {
	return m == MarkDone || m == MarkBookmark
}

// TopicProgress is one user's state for one topic.
type TopicProgress struct {
	TopicID    string
	Done       map[string]struct{}
	Bookmarked map[string]struct{}
	Notes      map[string]string
}

// NewTopicProgress returns an empty entry for topicID.
func NewTopicProgress(topicID string) TopicProgress {
	return TopicProgress{
		TopicID:    topicID,
		Done:       make(map[string]struct{}),
		Bookmarked: make(map[string]struct{}),
		Notes:      make(map[string]string),
	}
}

func (tp TopicProgress) IsDone(questionID string) bool {
	_, ok := tp.Done[questionID]
	return ok
}

func (tp TopicProgress) IsBookmarked(questionID string) bool {
	_, ok := tp.Bookmarked[questionID]
	return ok
}

// Note returns the note for questionID, or "" when there is none.
func (tp TopicProgress) Note(questionID string) string {
	return tp.Notes[questionID]
}

func (tp TopicProgress) set(m Mark) map[string]struct{} {
	if m == MarkBookmark {
		return tp.Bookmarked
	}
	return tp.Done
}

func (tp TopicProgress) clone() TopicProgress {
	return TopicProgress{
		TopicID:    tp.TopicID,
		Done:       maps.Clone(tp.Done),
		Bookmarked: maps.Clone(tp.Bookmarked),
		Notes:      maps.Clone(tp.Notes),
	}
}

// Record is a user's progress across all topics, keyed by topic ID.
type Record struct {
	UserID string
	Topics map[string]TopicProgress
}

// Topic returns the entry for topicID, or an empty one when absent.
func (r Record) Topic(topicID string) TopicProgress {
	if tp, ok := r.Topics[topicID]; ok {
		return tp
	}
	return NewTopicProgress(topicID)
}
