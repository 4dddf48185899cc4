package store

import (
	"context"
	"time"

	"github.com/groblegark/shopwatch/internal/model"
)

// Store is the narrow contract this service holds against the shop's
// relational database: read-then-delete over the append-only event log, a
// read-only low-stock query for the initial snapshot, and a direct insert
// path used for test and demo events. The business tables themselves belong
// to the CRUD layer.
type Store interface {
	// RecordEvent appends an event to the log. CreatedAt is set to now
	// when zero.
	RecordEvent(ctx context.Context, event *model.Event) error

	// RecentEvents returns events created at or after since, newest first.
	RecentEvents(ctx context.Context, since time.Time) ([]*model.Event, error)

	// AllEvents returns the whole log ordered oldest first, for archival.
	AllEvents(ctx context.Context) ([]*model.Event, error)

	// PurgeEvents deletes events created before the cutoff and reports how
	// many rows were removed. Deletion is unconditional, not tied to
	// delivery.
	PurgeEvents(ctx context.Context, before time.Time) (int64, error)

	// LowStockProducts returns the limit products with the least stock.
	LowStockProducts(ctx context.Context, limit int) ([]*model.Product, error)

	Close() error
}
