package tracker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-tracker/internal/platform/database/databasetest"
	"github.com/p-n-ai/pai-tracker/internal/tracker"
)

func TestPostgresEventLogger(t *testing.T) {
	db := databasetest.New(t)
	ctx := context.Background()
	logger := tracker.NewPostgresEventLogger(db.Pool)

	require.NoError(t, logger.LogEvent(ctx, tracker.Event{
		UserID:     "u1",
		TopicID:    "t1",
		QuestionID: "q1",
		Field:      tracker.FieldNotes,
		Value:      "hello",
	}))
	require.NoError(t, logger.LogEvent(ctx, tracker.Event{
		UserID:     "u1",
		TopicID:    "t1",
		QuestionID: "q1",
		Field:      tracker.FieldNotes,
	}))
	require.Error(t, logger.LogEvent(ctx, tracker.Event{UserID: "u1", Field: "Stars"}))

	var count int
	require.NoError(t, db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM progress_events WHERE user_id = 'u1' AND field = 'Notes'`,
	).Scan(&count))
	require.Equal(t, 2, count)

	var value string
	require.NoError(t, db.Pool.QueryRow(ctx,
		`SELECT value::text FROM progress_events WHERE user_id = 'u1' ORDER BY id LIMIT 1`,
	).Scan(&value))
	require.Equal(t, `"hello"`, value)
}
