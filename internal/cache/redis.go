// Package cache builds the shared Redis client.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	pingAttempts = 5
	pingBackoff  = 500 * time.Millisecond
)

// Connect parses url, opens a client and pings it with bounded retries.
func Connect(ctx context.Context, url string, log *logrus.Entry) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	for attempt := 1; ; attempt++ {
		err = rdb.Ping(ctx).Err()
		if err == nil {
			log.Infof("Connected to Redis at %s", opts.Addr)
			return rdb, nil
		}
		if attempt == pingAttempts {
			break
		}
		log.WithError(err).Warnf("Redis ping %d/%d failed", attempt, pingAttempts)
		select {
		case <-ctx.Done():
			rdb.Close()
			return nil, ctx.Err()
		case <-time.After(pingBackoff * time.Duration(attempt)):
		}
	}
	rdb.Close()
	return nil, fmt.Errorf("redis at %s unreachable: %w", opts.Addr, err)
}
