package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	dbTimeout         = 5 * time.Second
	pgUniqueViolation = "23505"
	topicColumns      = `id::text, name, position`
	questionColumns   = `id::text, topic_id::text, problem, urls`
)

// PostgresStore is a PostgreSQL-backed catalog Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed catalog store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) AddTopic(ctx context.Context, nt NewTopic) (Topic, error) {
	if err := nt.Validate(); err != nil {
		return Topic{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	t := buildTopic(nt)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO topics (id, name, position) VALUES ($1::uuid, $2, $3)`,
			t.ID, t.Name, t.Position,
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return ErrDuplicateTopic
			}
			return fmt.Errorf("insert topic: %w", err)
		}

		if len(t.Questions) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i, q := range t.Questions {
			batch.Queue(
				`INSERT INTO questions (id, topic_id, ordinal, problem, urls)
				 VALUES ($1::uuid, $2::uuid, $3, $4, $5)`,
				q.ID, t.ID, i, q.Problem, q.URLs,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
		return nil
	})
	if err != nil {
		return Topic{}, err
	}

	return t, nil
}

func (s *PostgresStore) Topics(ctx context.Context) ([]Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+topicColumns+` FROM topics ORDER BY position ASC, name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	topics, err := pgx.CollectRows(rows, scanTopic)
	if err != nil {
		return nil, fmt.Errorf("scan topics: %w", err)
	}

	index := make(map[string]int, len(topics))
	for i := range topics {
		index[topics[i].ID] = i
	}

	qrows, err := s.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions ORDER BY topic_id, ordinal ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer qrows.Close()

	for qrows.Next() {
		q, topicID, err := scanQuestion(qrows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[topicID]; ok {
			topics[i].Questions = append(topics[i].Questions, q)
		}
	}
	if err := qrows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	return topics, nil
}

func (s *PostgresStore) TopicByName(ctx context.Context, name string) (Topic, error) {
	return s.topicByQuery(ctx,
		`SELECT `+topicColumns+` FROM topics WHERE name = $1`,
		NormalizeName(name),
	)
}

func (s *PostgresStore) TopicByID(ctx context.Context, id string) (Topic, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Topic{}, ErrTopicNotFound
	}
	return s.topicByQuery(ctx,
		`SELECT `+topicColumns+` FROM topics WHERE id = $1::uuid`,
		id,
	)
}

func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) topicByQuery(ctx context.Context, query string, args ...any) (Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return Topic{}, fmt.Errorf("query topic: %w", err)
	}
	t, err := pgx.CollectExactlyOneRow(rows, scanTopic)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Topic{}, ErrTopicNotFound
		}
		return Topic{}, fmt.Errorf("get topic: %w", err)
	}

	qrows, err := s.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE topic_id = $1::uuid ORDER BY ordinal ASC`,
		t.ID,
	)
	if err != nil {
		return Topic{}, fmt.Errorf("query questions: %w", err)
	}
	defer qrows.Close()

	for qrows.Next() {
		q, _, err := scanQuestion(qrows)
		if err != nil {
			return Topic{}, err
		}
		t.Questions = append(t.Questions, q)
	}
	if err := qrows.Err(); err != nil {
		return Topic{}, fmt.Errorf("iterate questions: %w", err)
	}

	return t, nil
}

func scanTopic(row pgx.CollectableRow) (Topic, error) {
	t := Topic{Questions: []Question{}}
	err := row.Scan(&t.ID, &t.Name, &t.Position)
	return t, err
}

func scanQuestion(rows pgx.Rows) (Question, string, error) {
	var q Question
	var topicID string
	if err := rows.Scan(&q.ID, &topicID, &q.Problem, &q.URLs); err != nil {
		return Question{}, "", fmt.Errorf("scan question: %w", err)
	}
	if q.URLs == nil {
		q.URLs = []string{}
	}
	return q, topicID, nil
}
