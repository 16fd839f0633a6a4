package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ImportResult summarises an Import run.
type ImportResult struct {
	Added   int
	Skipped int
	Errors  []string
}

// Import adds every topic to store. Topics whose name already exists are
// skipped; invalid topics are reported in Errors. Any other store error stops
// the import.
func Import(ctx context.Context, store Store, topics []NewTopic) (*ImportResult, error) {
	result := &ImportResult{}

	for _, nt := range topics {
		t, err := store.AddTopic(ctx, nt)
		var verr *ValidationError
		switch {
		case err == nil:
			result.Added++
			slog.Debug("topic imported", "topic_id", t.ID, "name", t.Name, "questions", len(t.Questions))
		case errors.Is(err, ErrDuplicateTopic):
			result.Skipped++
		case errors.As(err, &verr):
			result.Errors = append(result.Errors, fmt.Sprintf("%q: %v", nt.Name, err))
		default:
			return result, fmt.Errorf("import topic %q: %w", nt.Name, err)
		}
	}

	slog.Info("catalog imported",
		"added", result.Added,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
	)
	return result, nil
}
