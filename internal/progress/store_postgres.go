package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	dbTimeout             = 5 * time.Second
	pgForeignKeyViolation = "23503"
)

// PostgresStore is a PostgreSQL-backed progress Store. A record is a row in
// progress_records, an entry a row in topic_progress, and every set member or
// note its own row, so each mutation is a single-row insert or delete.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed progress store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) EnsureRecord(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO progress_records (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	); err != nil {
		return fmt.Errorf("ensure progress record: %w", err)
	}
	return nil
}

func (s *PostgresStore) EnsureTopic(ctx context.Context, userID, topicID string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO progress_records (user_id) VALUES ($1)
			 ON CONFLICT (user_id) DO NOTHING`,
			userID,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO topic_progress (user_id, topic_id) VALUES ($1, $2)
			 ON CONFLICT (user_id, topic_id) DO NOTHING`,
			userID, topicID,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("ensure topic progress: %w", err)
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, userID string) (Record, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rec := Record{UserID: userID, Topics: map[string]TopicProgress{}}
	found := false

	err := s.readTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM progress_records WHERE user_id = $1)`,
			userID,
		).Scan(&found); err != nil {
			return fmt.Errorf("lookup progress record: %w", err)
		}
		if !found {
			return nil
		}
		return loadEntries(ctx, tx, rec.Topics, userID, "")
	})
	if err != nil {
		return Record{}, false, err
	}
	if !found {
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (s *PostgresStore) TopicProgress(ctx context.Context, userID, topicID string) (TopicProgress, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	entries := map[string]TopicProgress{}
	err := s.readTx(ctx, func(tx pgx.Tx) error {
		return loadEntries(ctx, tx, entries, userID, topicID)
	})
	if err != nil {
		return TopicProgress{}, false, err
	}
	tp, ok := entries[topicID]
	return tp, ok, nil
}

func (s *PostgresStore) AddMark(ctx context.Context, userID, topicID string, mark Mark, questionID string) error {
	if !mark.Valid() {
		return fmt.Errorf("unknown mark %q", mark)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO progress_marks (user_id, topic_id, question_id, kind)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, topic_id, question_id, kind) DO NOTHING`,
		userID, topicID, questionID, string(mark),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNoTopicProgress
		}
		return fmt.Errorf("add %s mark: %w", mark, err)
	}
	return nil
}

func (s *PostgresStore) RemoveMark(ctx context.Context, userID, topicID string, mark Mark, questionID string) error {
	if !mark.Valid() {
		return fmt.Errorf("unknown mark %q", mark)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx,
		`DELETE FROM progress_marks
		 WHERE user_id = $1 AND topic_id = $2 AND question_id = $3 AND kind = $4`,
		userID, topicID, questionID, string(mark),
	); err != nil {
		return fmt.Errorf("remove %s mark: %w", mark, err)
	}
	return nil
}

func (s *PostgresStore) SetNote(ctx context.Context, userID, topicID, questionID, text string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO progress_notes (user_id, topic_id, question_id, body)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, topic_id, question_id)
		 DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()`,
		userID, topicID, questionID, text,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNoTopicProgress
		}
		return fmt.Errorf("set note: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteNote(ctx context.Context, userID, topicID, questionID string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx,
		`DELETE FROM progress_notes
		 WHERE user_id = $1 AND topic_id = $2 AND question_id = $3`,
		userID, topicID, questionID,
	); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

func (s *PostgresStore) Users(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT user_id FROM progress_records ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// readTx runs fn in a read-only repeatable-read transaction so that the
// entry, mark and note queries observe one snapshot.
func (s *PostgresStore) readTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, fn)
}

// loadEntries fills entries with the user's topic progress, restricted to
// topicID when it is non-empty.
func loadEntries(ctx context.Context, tx pgx.Tx, entries map[string]TopicProgress, userID, topicID string) error {
	const filter = `WHERE user_id = $1 AND ($2 = '' OR topic_id = $2)`

	rows, err := tx.Query(ctx, `SELECT topic_id FROM topic_progress `+filter, userID, topicID)
	if err != nil {
		return fmt.Errorf("query topic progress: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("scan topic progress: %w", err)
	}
	for _, id := range ids {
		entries[id] = NewTopicProgress(id)
	}
	if len(ids) == 0 {
		return nil
	}

	rows, err = tx.Query(ctx, `SELECT topic_id, question_id, kind FROM progress_marks `+filter, userID, topicID)
	if err != nil {
		return fmt.Errorf("query marks: %w", err)
	}
	var tid, qid, kind string
	_, err = pgx.ForEachRow(rows, []any{&tid, &qid, &kind}, func() error {
		if tp, ok := entries[tid]; ok {
			tp.set(Mark(kind))[qid] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan marks: %w", err)
	}

	var body string
	rows, err = tx.Query(ctx, `SELECT topic_id, question_id, body FROM progress_notes `+filter, userID, topicID)
	if err != nil {
		return fmt.Errorf("query notes: %w", err)
	}
	_, err = pgx.ForEachRow(rows, []any{&tid, &qid, &body}, func() error {
		if tp, ok := entries[tid]; ok {
			tp.Notes[qid] = body
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan notes: %w", err)
	}

	return nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
