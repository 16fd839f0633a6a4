// Package tracker merges the shared topic catalog with each user's sparse
// progress record and derives completion percentages from the result.
package tracker

import (
	"github.com/p-n-ai/pai-tracker/internal/catalog"
)

// Field names one updatable per-question attribute.
type Field string

const (
	FieldDone     Field = "Done"
	FieldBookmark Field = "Bookmark"
	FieldNotes    Field = "Notes"
)

// Valid reports whether f is a recognized field.
func (f Field) Valid() bool {
	switch f {
	case FieldDone, FieldBookmark, FieldNotes:
		return true
	}
	return false
}

// FieldUpdate is a single-field change to one question's progress.
// Value is a bool for Done and Bookmark, and a string (or nil) for Notes.
type FieldUpdate struct {
	TopicID    string
	QuestionID string
	Field      Field
	Value      any
}

// MergedQuestion is a catalog question annotated with one user's status.
type MergedQuestion struct {
	catalog.Question
	Done       bool   `json:"done"`
	Bookmarked bool   `json:"bookmarked"`
	Note       string `json:"note"`
}

// MergedTopic is a catalog topic whose questions carry one user's status.
type MergedTopic struct {
	ID        string           `json:"id"`
	Name      string           `json:"topicName"`
	Position  int              `json:"position"`
	Questions []MergedQuestion `json:"questions"`
}

// AnnotatedQuestion is a merged question together with its topic identity.
type AnnotatedQuestion struct {
	MergedQuestion
	TopicID   string `json:"topicId"`
	TopicName string `json:"topicName"`
}

// TopicSummary is the completion rollup for one topic.
type TopicSummary struct {
	TopicID   string `json:"topicId"`
	TopicName string `json:"topicName"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Percent   int    `json:"percent"`
}

// UserSummary is one user's overall completion.
type UserSummary struct {
	UserID  string `json:"userId"`
	Percent int    `json:"percent"`
}

// UserReport is one user's overall completion with the per-topic breakdown.
type UserReport struct {
	UserID       string         `json:"userId"`
	TotalPercent int            `json:"totalPercent"`
	Topics       []TopicSummary `json:"topics"`
}
