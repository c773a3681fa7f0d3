package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "crazyaces:session:"
	maxTxnAttempts = 5
)

// RedisStore keeps session records as JSON strings with a key TTL.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore returns a Store backed by rdb.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func redisKey(id string) string { return redisKeyPrefix + id }

// Create implements Store using SETNX so an existing id is never overwritten.
func (s *RedisStore) Create(ctx context.Context, rec Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, redisKey(rec.SessionID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("create session %s: %w", rec.SessionID, err)
	}
	if !ok {
		return fmt.Errorf("create session %s: id already exists", rec.SessionID)
	}
	return nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (Record, error) {
	return getRecord(ctx, s.rdb, id)
}

// Update implements Store with an optimistic WATCH/MULTI transaction,
// retried a bounded number of times on concurrent modification.
func (s *RedisStore) Update(ctx context.Context, id string, ttl time.Duration, fn func(*Record) error) (Record, error) {
	key := redisKey(id)
	var out Record

	txf := func(tx *redis.Tx) error {
		rec, err := getRecord(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(&rec); err != nil {
			return err
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		if err == nil {
			out = rec
		}
		return err
	}

	for attempt := 0; attempt < maxTxnAttempts; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return Record{}, err
		}
	}
	return Record{}, fmt.Errorf("update session %s: too much contention", id)
}

// stringGetter is satisfied by both *redis.Client and *redis.Tx.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getRecord(ctx context.Context, c stringGetter, id string) (Record, error) {
	data, err := c.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrSessionNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get session %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return rec, nil
}
