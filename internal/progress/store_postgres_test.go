package progress_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-tracker/internal/platform/database/databasetest"
	"github.com/p-n-ai/pai-tracker/internal/progress"
)

func TestPostgresStore(t *testing.T) {
	db := databasetest.New(t)

	runStoreContract(t, func(t *testing.T) progress.Store {
		_, err := db.Pool.Exec(context.Background(),
			`TRUNCATE progress_notes, progress_marks, topic_progress, progress_records CASCADE`)
		require.NoError(t, err)

		store, err := progress.NewPostgresStore(db.Pool)
		require.NoError(t, err)
		return store
	})
}

func TestNewPostgresStore_NilPool(t *testing.T) {
	if _, err := progress.NewPostgresStore(nil); err == nil {
		t.Fatal("NewPostgresStore(nil) should return error")
	}
}
