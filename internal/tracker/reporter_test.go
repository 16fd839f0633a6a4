package tracker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/p-n-ai/pai-tracker/internal/catalog"
	"github.com/p-n-ai/pai-tracker/internal/progress"
	"github.com/p-n-ai/pai-tracker/internal/tracker"
)

func TestReporter_TopicProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	thirds := f.addTopic(t, "Thirds", 2, "a", "b", "c")
	f.addTopic(t, "Empty", 3)

	f.update(t, "U", f.arrays, 0, tracker.FieldDone, true)
	f.update(t, "U", thirds, 0, tracker.FieldDone, true)
	f.update(t, "U", thirds, 1, tracker.FieldDone, true)

	got, err := f.reporter.TopicProgress(ctx, "U")
	if err != nil {
		t.Fatalf("TopicProgress() error = %v", err)
	}

	want := []tracker.TopicSummary{
		{TopicID: f.arrays.ID, TopicName: "Arrays", Total: 2, Completed: 1, Percent: 50},
		{TopicID: thirds.ID, TopicName: "Thirds", Total: 3, Completed: 2, Percent: 67},
		{TopicName: "Empty", Total: 0, Completed: 0, Percent: 0},
	}
	if len(got) != len(want) {
		t.Fatalf("TopicProgress() = %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		w := want[i]
		if w.TopicID == "" {
			w.TopicID = got[i].TopicID
		}
		if got[i] != w {
			t.Errorf("TopicProgress()[%d] = %+v, want %+v", i, got[i], w)
		}
	}
}

func TestReporter_NoRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	summaries, err := f.reporter.TopicProgress(ctx, "nobody")
	if err != nil {
		t.Fatalf("TopicProgress() error = %v", err)
	}
	if len(summaries) != 1 || summaries[0].Completed != 0 || summaries[0].Percent != 0 {
		t.Errorf("TopicProgress() = %+v, want zero completion", summaries)
	}

	total, err := f.reporter.TotalProgress(ctx, "nobody")
	if err != nil || total != 0 {
		t.Errorf("TotalProgress() = %d, %v, want 0, nil", total, err)
	}

	bookmarks, err := f.reporter.Bookmarks(ctx, "nobody")
	if err != nil {
		t.Fatalf("Bookmarks() error = %v", err)
	}
	if bookmarks == nil || len(bookmarks) != 0 {
		t.Errorf("Bookmarks() = %v, want empty list", bookmarks)
	}

	if users, _ := f.progress.Users(ctx); len(users) != 0 {
		t.Errorf("Users() = %v, reports must not create records", users)
	}
}

func TestReporter_EmptyCatalog(t *testing.T) {
	reporter := tracker.NewReporter(catalog.NewMemoryStore(), progress.NewMemoryStore())

	total, err := reporter.TotalProgress(context.Background(), "U")
	if err != nil {
		t.Fatalf("TotalProgress() error = %v", err)
	}
	if total != 0 {
		t.Errorf("TotalProgress() = %d, want 0 for an empty catalog", total)
	}
}

func TestReporter_Rounding(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		total int
		done  int
		want  int
	}{
		{"one of eight rounds half up", 8, 1, 13},
		{"one of three rounds down", 3, 1, 33},
		{"two of three rounds up", 3, 2, 67},
		{"all done", 4, 4, 100},
		{"none done", 5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			problems := make([]string, tt.total)
			for i := range problems {
				problems[i] = "p"
			}
			topic := f.addTopic(t, "Rounding", 2, problems...)
			for i := range tt.done {
				f.update(t, "U", topic, i, tracker.FieldDone, true)
			}

			summaries, err := f.reporter.TopicProgress(ctx, "U")
			if err != nil {
				t.Fatalf("TopicProgress() error = %v", err)
			}
			if got := summaries[1].Percent; got != tt.want {
				t.Errorf("Percent = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReporter_Bookmarks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.addTopic(t, "Basics", 0, "x", "y", "z")

	f.update(t, "U", f.arrays, 1, tracker.FieldBookmark, true)
	f.update(t, "U", f.arrays, 1, tracker.FieldNotes, "revisit")
	f.update(t, "U", first, 2, tracker.FieldBookmark, true)
	f.update(t, "U", first, 0, tracker.FieldBookmark, true)
	f.update(t, "U", first, 0, tracker.FieldDone, true)
	f.update(t, "U", first, 1, tracker.FieldDone, true)

	got, err := f.reporter.Bookmarks(ctx, "U")
	if err != nil {
		t.Fatalf("Bookmarks() error = %v", err)
	}
	want := []struct {
		topic, problem string
		done           bool
		note           string
	}{
		{"Basics", "x", true, ""},
		{"Basics", "z", false, ""},
		{"Arrays", "Find the maximum", false, "revisit"},
	}
	if len(got) != len(want) {
		t.Fatalf("Bookmarks() = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		g := got[i]
		if g.TopicName != w.topic || g.Problem != w.problem || g.Done != w.done || g.Note != w.note || !g.Bookmarked {
			t.Errorf("Bookmarks()[%d] = %+v, want %+v", i, g, w)
		}
	}
	if got[2].TopicID != f.arrays.ID {
		t.Errorf("TopicID = %q, want %q", got[2].TopicID, f.arrays.ID)
	}
}

func TestReporter_UsersProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.update(t, "carol", f.arrays, 0, tracker.FieldDone, true)
	f.update(t, "alice", f.arrays, 0, tracker.FieldDone, true)
	f.update(t, "alice", f.arrays, 1, tracker.FieldDone, true)
	f.update(t, "bob", f.arrays, 1, tracker.FieldDone, true)
	if _, err := f.engine.Topic(ctx, "dave", "Arrays"); err != nil {
		t.Fatal(err)
	}

	got, err := f.reporter.UsersProgress(ctx)
	if err != nil {
		t.Fatalf("UsersProgress() error = %v", err)
	}
	want := []tracker.UserSummary{
		{UserID: "alice", Percent: 100},
		{UserID: "bob", Percent: 50},
		{UserID: "carol", Percent: 50},
		{UserID: "dave", Percent: 0},
	}
	if len(got) != len(want) {
		t.Fatalf("UsersProgress() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("UsersProgress()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReporter_UserReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addTopic(t, "Graphs", 2, "BFS", "DFS")

	f.update(t, "U", f.arrays, 0, tracker.FieldDone, true)
	f.update(t, "U", f.arrays, 1, tracker.FieldDone, true)

	report, err := f.reporter.UserReport(ctx, "U")
	if err != nil {
		t.Fatalf("UserReport() error = %v", err)
	}
	if report.UserID != "U" || report.TotalPercent != 50 {
		t.Errorf("UserReport() = %+v, want U at 50", report)
	}
	if len(report.Topics) != 2 || report.Topics[0].Percent != 100 || report.Topics[1].Percent != 0 {
		t.Errorf("Topics = %+v, want Arrays 100 and Graphs 0", report.Topics)
	}

	for _, userID := range []string{"ghost", ""} {
		if _, err := f.reporter.UserReport(ctx, userID); !errors.Is(err, tracker.ErrNotFound) {
			t.Errorf("UserReport(%q) error = %v, want ErrNotFound", userID, err)
		}
	}
}
