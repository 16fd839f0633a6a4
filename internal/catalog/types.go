// Package catalog holds the shared, user-independent set of topics and their
// ordered questions.
package catalog

import "errors"

var (
	// ErrTopicNotFound is returned when no topic matches the lookup key.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrDuplicateTopic is returned when adding a topic whose name is taken.
	ErrDuplicateTopic = errors.New("topic name already exists")
)

// Question is a single problem within a topic.
type Question struct {
	ID      string   `json:"id"`
	Problem string   `json:"problem"`
	URLs    []string `json:"urls"`
}

// Topic is a named, positioned group of questions.
type Topic struct {
	ID        string     `json:"id"`
	Name      string     `json:"topicName"`
	Position  int        `json:"position"`
	Questions []Question `json:"questions"`
}

// HasQuestion reports whether id names a question of this topic.
func (t Topic) HasQuestion(id string) bool {
	for _, q := range t.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// NewQuestion is the input form of a Question.
type NewQuestion struct {
	Problem string   `json:"problem" yaml:"problem" validate:"required"`
	URLs    []string `json:"urls" yaml:"urls" validate:"omitempty,dive,url"`
}

// NewTopic is the input form of a Topic. IDs are assigned by the store.
type NewTopic struct {
	Name      string        `json:"topicName" yaml:"topicName" validate:"required,max=200"`
	Position  int           `json:"position" yaml:"position" validate:"gte=0"`
	Questions []NewQuestion `json:"questions" yaml:"questions" validate:"dive"`
}
