package analytics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// MaxBatch is the largest batch handed to a Sink, and the largest batch
	// accepted by the ingestion endpoint.
	MaxBatch = 50

	DefaultFlushInterval = 5 * time.Second
	defaultBuffer        = 1024
	flushTimeout         = 2 * time.Second
)

// Queue batches events in memory and flushes them to a Sink, either when a
// batch fills up or on a timer. Track never blocks: a full buffer drops the
// event.
type Queue struct {
	sink     Sink
	interval time.Duration
	log      *logrus.Entry

	ch      chan Event
	closed  atomic.Bool
	dropped atomic.Int64

	writeMu sync.Mutex
}

// QueueOptions tunes a Queue. Zero values pick defaults.
type QueueOptions struct {
	FlushInterval time.Duration
	Buffer        int
	Log           *logrus.Entry
}

// NewQueue creates a queue in front of sink. Run must be started to flush on
// a timer.
func NewQueue(sink Sink, opts QueueOptions) *Queue {
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Queue{
		sink:     sink,
		interval: opts.FlushInterval,
		log:      opts.Log,
		ch:       make(chan Event, opts.Buffer),
	}
}

// Track enqueues ev. It never blocks and never fails.
func (q *Queue) Track(ev Event) {
	if q == nil || q.closed.Load() {
		return
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	select {
	case q.ch <- ev:
	default:
		if n := q.dropped.Add(1); n == 1 || n%100 == 0 {
			q.log.Warnf("Analytics buffer full, %d events dropped so far", n)
		}
	}
}

// Dropped returns the number of events discarded because the buffer was full.
func (q *Queue) Dropped() int64 { return q.dropped.Load() }

// Run flushes full batches as they form and partial batches every flush
// interval, until ctx is done. On exit it makes one best-effort flush.
func (q *Queue) Run(ctx context.Context) error {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	batch := make([]Event, 0, MaxBatch)
	for {
		select {
		case <-ctx.Done():
			q.write(batch)
			q.Close()
			return nil
		case ev := <-q.ch:
			batch = append(batch, ev)
			if len(batch) >= MaxBatch {
				q.write(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				q.write(batch)
				batch = batch[:0]
			}
		}
	}
}

// Flush synchronously drains whatever is buffered, in batches of MaxBatch.
func (q *Queue) Flush() {
	batch := make([]Event, 0, MaxBatch)
	for {
		select {
		case ev := <-q.ch:
			batch = append(batch, ev)
			if len(batch) >= MaxBatch {
				q.write(batch)
				batch = batch[:0]
			}
		default:
			q.write(batch)
			return
		}
	}
}

// Close stops accepting events and makes a best-effort flush of the buffer.
func (q *Queue) Close() {
	q.closed.Store(true)
	q.Flush()
}

// write hands a batch to the sink. Failures are logged and the batch is lost.
func (q *Queue) write(batch []Event) {
	if len(batch) == 0 {
		return
	}
	q.writeMu.Lock()
	defer q.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := q.sink.Write(ctx, append([]Event(nil), batch...)); err != nil {
		q.log.WithError(err).Warnf("Analytics flush of %d events failed", len(batch))
	}
}
