package claim

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisLedgerPrefix = "crazyaces:claim:"

// RedisLedger stores one key per claimed hash, with no expiry.
type RedisLedger struct {
	rdb redis.Cmdable
}

// NewRedisLedger returns a Ledger backed by rdb.
func NewRedisLedger(rdb redis.Cmdable) *RedisLedger {
	return &RedisLedger{rdb: rdb}
}

// Reserve implements Ledger with SETNX.
func (l *RedisLedger) Reserve(ctx context.Context, hash string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, redisLedgerPrefix+hash, time.Now().Unix(), 0).Result()
	if err != nil {
		return false, fmt.Errorf("reserve claim: %w", err)
	}
	return ok, nil
}

// Release implements Ledger.
func (l *RedisLedger) Release(ctx context.Context, hash string) error {
	if err := l.rdb.Del(ctx, redisLedgerPrefix+hash).Err(); err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	return nil
}

// Has implements Ledger.
func (l *RedisLedger) Has(ctx context.Context, hash string) (bool, error) {
	n, err := l.rdb.Exists(ctx, redisLedgerPrefix+hash).Result()
	if err != nil {
		return false, fmt.Errorf("check claim: %w", err)
	}
	return n > 0, nil
}
