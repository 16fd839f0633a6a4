package progress

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "tracker:"

// Mutations that require an existing entry run as scripts so the membership
// check and the write are one atomic step on the server.
var (
	addMarkScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 0 then
  return -1
end
return redis.call('SADD', KEYS[2], ARGV[2])
`)

	setNoteScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 0 then
  return -1
end
return redis.call('HSET', KEYS[2], ARGV[2], ARGV[3])
`)
)

// RedisStore is a Redis-backed progress Store. Each user has a set of topic
// IDs with entries, and each entry is two sets (done, bookmark) plus a hash
// of notes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed progress store.
func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisStore{client: client}, nil
}

func usersKey() string {
	return redisPrefix + "users"
}

func topicsKey(userID string) string {
	return redisPrefix + "progress:{" + userID + "}:topics"
}

func markKey(userID, topicID string, mark Mark) string {
	return redisPrefix + "progress:{" + userID + "}:" + topicID + ":" + string(mark)
}

func notesKey(userID, topicID string) string {
	return redisPrefix + "progress:{" + userID + "}:" + topicID + ":notes"
}

func (s *RedisStore) EnsureRecord(ctx context.Context, userID string) error {
	if err := s.client.SAdd(ctx, usersKey(), userID).Err(); err != nil {
		return fmt.Errorf("ensure progress record: %w", err)
	}
	return nil
}

func (s *RedisStore) EnsureTopic(ctx context.Context, userID, topicID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, usersKey(), userID)
		pipe.SAdd(ctx, topicsKey(userID), topicID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("ensure topic progress: %w", err)
	}
	return nil
}

func (s *RedisStore) Record(ctx context.Context, userID string) (Record, bool, error) {
	found, err := s.client.SIsMember(ctx, usersKey(), userID).Result()
	if err != nil {
		return Record{}, false, fmt.Errorf("lookup progress record: %w", err)
	}
	if !found {
		return Record{}, false, nil
	}

	topicIDs, err := s.client.SMembers(ctx, topicsKey(userID)).Result()
	if err != nil {
		return Record{}, false, fmt.Errorf("list topic progress: %w", err)
	}

	entries, err := s.loadEntries(ctx, userID, topicIDs)
	if err != nil {
		return Record{}, false, err
	}
	return Record{UserID: userID, Topics: entries}, true, nil
}

func (s *RedisStore) TopicProgress(ctx context.Context, userID, topicID string) (TopicProgress, bool, error) {
	ok, err := s.client.SIsMember(ctx, topicsKey(userID), topicID).Result()
	if err != nil {
		return TopicProgress{}, false, fmt.Errorf("lookup topic progress: %w", err)
	}
	if !ok {
		return TopicProgress{}, false, nil
	}

	entries, err := s.loadEntries(ctx, userID, []string{topicID})
	if err != nil {
		return TopicProgress{}, false, err
	}
	return entries[topicID], true, nil
}

func (s *RedisStore) AddMark(ctx context.Context, userID, topicID string, mark Mark, questionID string) error {
	if !mark.Valid() {
		return fmt.Errorf("unknown mark %q", mark)
	}

	res, err := addMarkScript.Run(ctx, s.client,
		[]string{topicsKey(userID), markKey(userID, topicID, mark)},
		topicID, questionID,
	).Int()
	if err != nil {
		return fmt.Errorf("add %s mark: %w", mark, err)
	}
	if res < 0 {
		return ErrNoTopicProgress
	}
	return nil
}

func (s *RedisStore) RemoveMark(ctx context.Context, userID, topicID string, mark Mark, questionID string) error {
	if !mark.Valid() {
		return fmt.Errorf("unknown mark %q", mark)
	}

	if err := s.client.SRem(ctx, markKey(userID, topicID, mark), questionID).Err(); err != nil {
		return fmt.Errorf("remove %s mark: %w", mark, err)
	}
	return nil
}

func (s *RedisStore) SetNote(ctx context.Context, userID, topicID, questionID, text string) error {
	res, err := setNoteScript.Run(ctx, s.client,
		[]string{topicsKey(userID), notesKey(userID, topicID)},
		topicID, questionID, text,
	).Int()
	if err != nil {
		return fmt.Errorf("set note: %w", err)
	}
	if res < 0 {
		return ErrNoTopicProgress
	}
	return nil
}

func (s *RedisStore) DeleteNote(ctx context.Context, userID, topicID, questionID string) error {
	if err := s.client.HDel(ctx, notesKey(userID, topicID), questionID).Err(); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

func (s *RedisStore) Users(ctx context.Context) ([]string, error) {
	users, err := s.client.SMembers(ctx, usersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	slices.Sort(users)
	return users, nil
}

func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// loadEntries reads the sets and notes of every listed topic in one
// MULTI/EXEC round trip.
func (s *RedisStore) loadEntries(ctx context.Context, userID string, topicIDs []string) (map[string]TopicProgress, error) {
	entries := make(map[string]TopicProgress, len(topicIDs))
	if len(topicIDs) == 0 {
		return entries, nil
	}

	type pending struct {
		done     *redis.StringSliceCmd
		bookmark *redis.StringSliceCmd
		notes    *redis.MapStringStringCmd
	}
	cmds := make(map[string]pending, len(topicIDs))

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range topicIDs {
			cmds[id] = pending{
				done:     pipe.SMembers(ctx, markKey(userID, id, MarkDone)),
				bookmark: pipe.SMembers(ctx, markKey(userID, id, MarkBookmark)),
				notes:    pipe.HGetAll(ctx, notesKey(userID, id)),
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read topic progress: %w", err)
	}

	for id, c := range cmds {
		tp := NewTopicProgress(id)
		for _, q := range c.done.Val() {
			tp.Done[q] = struct{}{}
		}
		for _, q := range c.bookmark.Val() {
			tp.Bookmarked[q] = struct{}{}
		}
		for q, text := range c.notes.Val() {
			tp.Notes[q] = text
		}
		entries[id] = tp
	}
	return entries, nil
}
