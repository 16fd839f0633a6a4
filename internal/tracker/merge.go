package tracker

import (
	"math"

	"github.com/p-n-ai/pai-tracker/internal/catalog"
	"github.com/p-n-ai/pai-tracker/internal/progress"
)

// mergeTopic annotates every question of t, in catalog order, with the
// status held in tp. Progress for questions no longer in t is ignored.
func mergeTopic(t catalog.Topic, tp progress.TopicProgress) MergedTopic {
	mt := MergedTopic{
		ID:        t.ID,
		Name:      t.Name,
		Position:  t.Position,
		Questions: make([]MergedQuestion, len(t.Questions)),
	}
	for i, q := range t.Questions {
		mt.Questions[i] = MergedQuestion{
			Question:   q,
			Done:       tp.IsDone(q.ID),
			Bookmarked: tp.IsBookmarked(q.ID),
			Note:       tp.Note(q.ID),
		}
	}
	return mt
}

// completed counts the done questions of tp that still exist in t.
func completed(t catalog.Topic, tp progress.TopicProgress) int {
	n := 0
	for _, q := range t.Questions {
		if tp.IsDone(q.ID) {
			n++
		}
	}
	return n
}

// percent returns round(100*part/whole), or 0 when whole is 0.
func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}
