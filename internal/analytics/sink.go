package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Sink receives flushed batches.
type Sink interface {
	Write(ctx context.Context, events []Event) error
}

// DefaultRedisKey is the list analytics batches are pushed onto.
const DefaultRedisKey = "crazyaces:analytics"

// RedisSink appends events as JSON onto a Redis list for an offline consumer.
type RedisSink struct {
	rdb redis.Cmdable
	key string
}

// NewRedisSink returns a sink writing to key (DefaultRedisKey if empty).
func NewRedisSink(rdb redis.Cmdable, key string) *RedisSink {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSink{rdb: rdb, key: key}
}

// Write pushes the batch in one RPUSH.
func (s *RedisSink) Write(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	vals := make([]any, 0, len(events))
	for _, ev := range events {
		b, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal analytics event %s: %w", ev.Type, err)
		}
		vals = append(vals, b)
	}
	if err := s.rdb.RPush(ctx, s.key, vals...).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", s.key, err)
	}
	return nil
}

// LogSink writes every event as a structured log line.
type LogSink struct {
	Log *logrus.Entry
}

// Write implements Sink.
func (s LogSink) Write(_ context.Context, events []Event) error {
	for _, ev := range events {
		s.Log.WithFields(logrus.Fields{
			"event":   ev.Type,
			"session": ev.SessionID,
			"game":    ev.GameID,
			"ts":      ev.Timestamp,
		}).WithFields(logrus.Fields(ev.Data)).Info("analytics")
	}
	return nil
}

// MemorySink keeps events in memory (dev/test use).
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// Write implements Sink.
func (s *MemorySink) Write(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

// Events returns a copy of everything written so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}
