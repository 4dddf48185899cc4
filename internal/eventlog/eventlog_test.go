package eventlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/groblegark/shopwatch/internal/model"
)

// fakeStore implements the store methods StoreSource touches.
type fakeStore struct {
	events    []*model.Event
	recentErr error

	purgedBefore time.Time
	purgeCalls   int
}

func (f *fakeStore) RecordEvent(ctx context.Context, e *model.Event) error { return nil }

func (f *fakeStore) RecentEvents(ctx context.Context, since time.Time) ([]*model.Event, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	var out []*model.Event
	for i := len(f.events) - 1; i >= 0; i-- {
		if !f.events[i].CreatedAt.Before(since) {
			out = append(out, f.events[i])
		}
	}
	return out, nil
}

func (f *fakeStore) AllEvents(ctx context.Context) ([]*model.Event, error) {
	return f.events, nil
}

func (f *fakeStore) PurgeEvents(ctx context.Context, before time.Time) (int64, error) {
	f.purgedBefore = before
	f.purgeCalls++
	return 0, nil
}

func (f *fakeStore) LowStockProducts(ctx context.Context, limit int) ([]*model.Product, error) {
	return nil, nil
}

func (f *fakeStore) Close() error { return nil }

func TestStoreSourceSkipsDeliveredIDs(t *testing.T) {
	now := time.Now().UTC()
	fs := &fakeStore{events: []*model.Event{
		{ID: 1, Type: "stock_update", CreatedAt: now},
		{ID: 2, Type: "order_status", CreatedAt: now},
	}}
	src := NewStoreSource(fs)

	first, err := src.PollRecent(context.Background(), 5*time.Second)
	if err != nil {
		t.Fatalf("first poll: %v", err)
	}
	if len(first) != 2 || first[0].ID != 2 {
		t.Fatalf("first poll = %+v, want newest-first pair", first)
	}

	// Same rows still inside the window: already delivered, so skipped.
	second, err := src.PollRecent(context.Background(), 5*time.Second)
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second poll re-delivered %+v", second)
	}

	// A new row shows up alone.
	fs.events = append(fs.events, &model.Event{ID: 3, Type: "new_offer", CreatedAt: now})
	third, err := src.PollRecent(context.Background(), 5*time.Second)
	if err != nil {
		t.Fatalf("third poll: %v", err)
	}
	if len(third) != 1 || third[0].ID != 3 {
		t.Errorf("third poll = %+v, want only id 3", third)
	}
}

func TestStoreSourcePollError(t *testing.T) {
	wantErr := errors.New("db down")
	src := NewStoreSource(&fakeStore{recentErr: wantErr})

	if _, err := src.PollRecent(context.Background(), time.Second); !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestStoreSourcePurgeCutoff(t *testing.T) {
	fs := &fakeStore{}
	src := NewStoreSource(fs)

	before := time.Now().UTC()
	if err := src.Purge(context.Background(), time.Hour); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if fs.purgeCalls != 1 {
		t.Fatalf("purge calls = %d", fs.purgeCalls)
	}
	cutoff := fs.purgedBefore
	if cutoff.After(before.Add(-time.Hour + time.Minute)) || cutoff.Before(before.Add(-time.Hour-time.Minute)) {
		t.Errorf("cutoff %v not about one hour before now", cutoff)
	}
}
