package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ppiankov/claimcheck/internal/model"
)

// RedisStore keeps each transcript as a Redis list of JSON turns plus a
// creation timestamp key. Appends run in one MULTI/EXEC transaction.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. ttl <= 0 keeps sessions forever.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) turnsKey(id string) string   { return s.prefix + id + ":turns" }
func (s *RedisStore) createdKey(id string) string { return s.prefix + id + ":created" }

func (s *RedisStore) Get(ctx context.Context, id string) (*model.Session, error) {
	var created *redis.StringCmd
	var turns *redis.StringSliceCmd
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		created = p.Get(ctx, s.createdKey(id))
		turns = p.LRange(ctx, s.turnsKey(id), 0, -1)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, storeError("get", err)
	}

	createdStr, err := created.Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeError("get", err)
	}

	sess := &model.Session{ID: id}
	if sess.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr); err != nil {
		return nil, storeError("get", fmt.Errorf("decode created_at: %w", err))
	}

	raw, err := turns.Result()
	if err != nil {
		return nil, storeError("get", err)
	}
	sess.Turns = make([]model.Turn, 0, len(raw))
	for i, r := range raw {
		var t model.Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			return nil, storeError("get", fmt.Errorf("decode turn %d: %w", i, err))
		}
		sess.Turns = append(sess.Turns, t)
	}
	return sess, nil
}

func (s *RedisStore) Append(ctx context.Context, id string, turns ...model.Turn) error {
	ts := now()
	values := make([]any, 0, len(turns))
	for _, t := range stamp(turns, ts) {
		b, err := json.Marshal(t)
		if err != nil {
			return storeError("append", fmt.Errorf("encode turn: %w", err))
		}
		values = append(values, string(b))
	}

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SetNX(ctx, s.createdKey(id), ts.Format(time.RFC3339Nano), 0)
		if len(values) > 0 {
			p.RPush(ctx, s.turnsKey(id), values...)
		}
		if s.ttl > 0 {
			p.Expire(ctx, s.createdKey(id), s.ttl)
			p.Expire(ctx, s.turnsKey(id), s.ttl)
		}
		return nil
	})
	if err != nil {
		return storeError("append", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
