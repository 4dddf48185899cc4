package eventlog

import (
	"context"
	"sync"
	"time"

	"github.com/groblegark/shopwatch/internal/model"
)

// DefaultQueueCapacity bounds the in-memory queue. At one drain per tick a
// backlog this size means the producer is far outrunning the loop; dropping
// the oldest events keeps the freshest ones flowing.
const DefaultQueueCapacity = 1024

// Queue is a bounded in-memory event queue implementing Source. It backs
// the NATS source and stands in for the event log in tests. Push drops the
// oldest event when full.
type Queue struct {
	mu      sync.Mutex
	buf     []*model.Event
	cap     int
	dropped int64
}

var _ Source = (*Queue)(nil)

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{cap: capacity}
}

// Push appends an event, evicting the oldest entry if the queue is full.
// It reports whether the event was stored without an eviction.
func (q *Queue) Push(e *model.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	evicted := false
	if len(q.buf) >= q.cap {
		q.buf = q.buf[1:]
		q.dropped++
		evicted = true
	}
	q.buf = append(q.buf, e)
	return !evicted
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Dropped returns how many events have been evicted since creation.
func (q *Queue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// PollRecent drains the queue, newest first. The window is ignored: queued
// events were pushed since the previous drain by construction.
func (q *Queue) PollRecent(ctx context.Context, window time.Duration) ([]*model.Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.buf) == 0 {
		return nil, nil
	}
	out := make([]*model.Event, len(q.buf))
	for i, e := range q.buf {
		out[len(q.buf)-1-i] = e
	}
	q.buf = nil
	return out, nil
}

// Purge is a no-op: drained events are already gone and queued ones are
// newer than any reasonable retention cutoff.
func (q *Queue) Purge(ctx context.Context, olderThan time.Duration) error {
	return nil
}
