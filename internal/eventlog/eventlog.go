// Package eventlog bridges the durable event log into the broadcast loop.
// The store has no push mechanism, so the default source polls it on every
// tick; the same Source contract is also satisfied by a bounded in-memory
// queue and by a NATS subscription, so the dispatch loop never knows which
// transport feeds it.
package eventlog

import (
	"context"
	"sync"
	"time"

	"github.com/groblegark/shopwatch/internal/model"
	"github.com/groblegark/shopwatch/internal/store"
)

// Source supplies business events to the dispatch loop.
type Source interface {
	// PollRecent returns events that became visible within the last
	// window, newest first.
	PollRecent(ctx context.Context, window time.Duration) ([]*model.Event, error)

	// Purge discards events older than the retention cutoff. Deletion is
	// unconditional; it is not tied to delivery confirmation.
	Purge(ctx context.Context, olderThan time.Duration) error
}

// StoreSource polls the relational event log. Because the poll window can
// overlap the tick interval, delivery is at-least-once across ticks; the
// source remembers the highest event id it has handed out and skips rows it
// already delivered within this process lifetime. A restart re-delivers
// whatever is still inside the window.
type StoreSource struct {
	store store.Store

	mu     sync.Mutex
	lastID int64
}

var _ Source = (*StoreSource)(nil)

func NewStoreSource(s store.Store) *StoreSource {
	return &StoreSource{store: s}
}

func (s *StoreSource) PollRecent(ctx context.Context, window time.Duration) ([]*model.Event, error) {
	events, err := s.store.RecentEvents(ctx, time.Now().UTC().Add(-window))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := events[:0]
	for _, e := range events {
		if e.ID > s.lastID {
			fresh = append(fresh, e)
		}
	}
	for _, e := range fresh {
		if e.ID > s.lastID {
			s.lastID = e.ID
		}
	}
	return fresh, nil
}

func (s *StoreSource) Purge(ctx context.Context, olderThan time.Duration) error {
	_, err := s.store.PurgeEvents(ctx, time.Now().UTC().Add(-olderThan))
	return err
}
