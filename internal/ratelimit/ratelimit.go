// Package ratelimit implements sliding-window request limiting.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time // when the oldest counted request leaves the window
}

// RetryAfter returns how long a rejected caller should wait.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if d := r.ResetAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Limiter counts requests per key in a sliding window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// MemoryLimiter is an in-process Limiter.
type MemoryLimiter struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

// NewMemoryLimiter returns an empty MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{hits: make(map[string][]time.Time), now: time.Now}
}

// Allow implements Limiter.
func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-window)
	hits := m.hits[key]
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	hits = hits[i:]

	res := Result{}
	if len(hits) < limit {
		hits = append(hits, now)
		res.Allowed = true
	}
	res.Remaining = limit - len(hits)
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if len(hits) > 0 {
		res.ResetAt = hits[0].Add(window)
	} else {
		res.ResetAt = now.Add(window)
	}

	if len(hits) == 0 {
		delete(m.hits, key)
	} else {
		m.hits[key] = hits
	}
	return res, nil
}
