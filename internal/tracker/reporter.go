package tracker

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/pai-tracker/internal/catalog"
	"github.com/p-n-ai/pai-tracker/internal/progress"
)

// maxReportReaders bounds concurrent record reads in UsersProgress.
const maxReportReaders = 8

// Reporter derives completion percentages from the catalog and progress
// stores. Percentages are rounded half up; an empty denominator yields 0.
type Reporter struct {
	catalog  catalog.Store
	progress progress.Store
}

// NewReporter creates a reporter over the given stores.
func NewReporter(cat catalog.Store, prog progress.Store) *Reporter {
	return &Reporter{catalog: cat, progress: prog}
}

// TopicProgress returns the completion of every topic, in catalog order.
func (r *Reporter) TopicProgress(ctx context.Context, userID string) ([]TopicSummary, error) {
	topics, rec, err := loadState(ctx, r.catalog, r.progress, userID)
	if err != nil {
		return nil, err
	}
	return summarize(topics, rec), nil
}

// TotalProgress returns the user's completion across the whole catalog.
func (r *Reporter) TotalProgress(ctx context.Context, userID string) (int, error) {
	topics, rec, err := loadState(ctx, r.catalog, r.progress, userID)
	if err != nil {
		return 0, err
	}
	return totalPercent(topics, rec), nil
}

// Bookmarks returns the user's bookmarked questions in catalog order.
func (r *Reporter) Bookmarks(ctx context.Context, userID string) ([]AnnotatedQuestion, error) {
	topics, rec, err := loadState(ctx, r.catalog, r.progress, userID)
	if err != nil {
		return nil, err
	}

	out := []AnnotatedQuestion{}
	for _, t := range topics {
		tp, ok := rec.Topics[t.ID]
		if !ok || len(tp.Bookmarked) == 0 {
			continue
		}
		for _, q := range mergeTopic(t, tp).Questions {
			if !q.Bookmarked {
				continue
			}
			out = append(out, AnnotatedQuestion{
				MergedQuestion: q,
				TopicID:        t.ID,
				TopicName:      t.Name,
			})
		}
	}
	return out, nil
}

// UsersProgress returns the overall completion of every user with a
// progress record, highest first.
func (r *Reporter) UsersProgress(ctx context.Context) ([]UserSummary, error) {
	topics, err := r.catalog.Topics(ctx)
	if err != nil {
		return nil, storeErr("list topics", err)
	}
	users, err := r.progress.Users(ctx)
	if err != nil {
		return nil, storeErr("list users", err)
	}

	out := make([]UserSummary, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxReportReaders)
	for i, userID := range users {
		g.Go(func() error {
			rec, _, err := r.progress.Record(gctx, userID)
			if err != nil {
				return storeErr(fmt.Sprintf("get progress record %s", userID), err)
			}
			out[i] = UserSummary{UserID: userID, Percent: totalPercent(topics, rec)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(out, func(a, b UserSummary) int {
		if c := cmp.Compare(b.Percent, a.Percent); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	return out, nil
}

// UserReport returns one user's overall and per-topic completion.
func (r *Reporter) UserReport(ctx context.Context, userID string) (UserReport, error) {
	if userID == "" {
		return UserReport{}, fmt.Errorf("user: %w", ErrNotFound)
	}

	topics, err := r.catalog.Topics(ctx)
	if err != nil {
		return UserReport{}, storeErr("list topics", err)
	}
	rec, found, err := r.progress.Record(ctx, userID)
	if err != nil {
		return UserReport{}, storeErr("get progress record", err)
	}
	if !found {
		return UserReport{}, fmt.Errorf("user %q: %w", userID, ErrNotFound)
	}

	return UserReport{
		UserID:       userID,
		TotalPercent: totalPercent(topics, rec),
		Topics:       summarize(topics, rec),
	}, nil
}

func summarize(topics []catalog.Topic, rec progress.Record) []TopicSummary {
	out := make([]TopicSummary, len(topics))
	for i, t := range topics {
		done := completed(t, rec.Topics[t.ID])
		out[i] = TopicSummary{
			TopicID:   t.ID,
			TopicName: t.Name,
			Total:     len(t.Questions),
			Completed: done,
			Percent:   percent(done, len(t.Questions)),
		}
	}
	return out
}

func totalPercent(topics []catalog.Topic, rec progress.Record) int {
	var total, done int
	for _, t := range topics {
		total += len(t.Questions)
		done += completed(t, rec.Topics[t.ID])
	}
	return percent(done, total)
}
