package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/groblegark/shopwatch/internal/model"
)

func testEvent(typ, payload string, at time.Time) *model.Event {
	e := &model.Event{Type: typ, CreatedAt: at}
	if payload != "" {
		e.Payload = json.RawMessage(payload)
	}
	return e
}

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var eventRowColumns = []string{"id", "event_type", "event_data", "created_at"}

func TestQueryRecordEvent(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO events \(event_type, event_data, created_at\)`).
		WithArgs("stock_update", []byte(`{"product_id":7}`), now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	e := testEvent("stock_update", `{"product_id":7}`, now)
	if err := queryRecordEvent(context.Background(), db, e); err != nil {
		t.Fatalf("queryRecordEvent: %v", err)
	}
	if e.ID != 42 {
		t.Errorf("ID = %d, want 42", e.ID)
	}
}

func TestQueryRecordEventSetsCreatedAt(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`INSERT INTO events`).
		WithArgs("order_status", nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	e := testEvent("order_status", "", time.Time{})
	if err := queryRecordEvent(context.Background(), db, e); err != nil {
		t.Fatalf("queryRecordEvent: %v", err)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt was not populated")
	}
}

func TestQueryRecentEvents(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	since := now.Add(-5 * time.Second)

	rows := sqlmock.NewRows(eventRowColumns).
		AddRow(int64(3), "new_offer", []byte(`{"sku":"A"}`), now).
		AddRow(int64(2), "stock_update", nil, now.Add(-2*time.Second))
	mock.ExpectQuery(`SELECT .+ FROM events\s+WHERE created_at >= \$1\s+ORDER BY created_at DESC, id DESC`).
		WithArgs(since).
		WillReturnRows(rows)

	events, err := queryRecentEvents(context.Background(), db, since)
	if err != nil {
		t.Fatalf("queryRecentEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ID != 3 || events[0].Type != "new_offer" {
		t.Errorf("first event = %+v", events[0])
	}
	if string(events[0].Payload) != `{"sku":"A"}` {
		t.Errorf("payload = %s", events[0].Payload)
	}
	if events[1].Payload != nil {
		t.Errorf("nil payload scanned as %q", events[1].Payload)
	}
}

func TestQueryPurgeEvents(t *testing.T) {
	db, mock := newMockDB(t)
	cutoff := time.Now().UTC().Add(-time.Hour)

	mock.ExpectExec(`DELETE FROM events WHERE created_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 17))

	n, err := queryPurgeEvents(context.Background(), db, cutoff)
	if err != nil {
		t.Fatalf("queryPurgeEvents: %v", err)
	}
	if n != 17 {
		t.Errorf("purged %d rows, want 17", n)
	}
}

func TestQueryLowStockProducts(t *testing.T) {
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "name", "price", "stock"}).
		AddRow(int64(1), "usb cable", 4.99, 0).
		AddRow(int64(9), "keyboard", 39.90, 2)
	mock.ExpectQuery(`SELECT id, name, price, stock FROM products\s+ORDER BY stock ASC, id ASC\s+LIMIT \$1`).
		WithArgs(5).
		WillReturnRows(rows)

	products, err := queryLowStockProducts(context.Background(), db, 5)
	if err != nil {
		t.Fatalf("queryLowStockProducts: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("got %d products, want 2", len(products))
	}
	if products[0].Name != "usb cable" || products[0].Stock != 0 {
		t.Errorf("first product = %+v", products[0])
	}
}

func TestQueryAllEvents(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(eventRowColumns).
		AddRow(int64(1), "new_review", []byte(`{"stars":5}`), now.Add(-time.Minute)).
		AddRow(int64(2), "stock_update", []byte(`{}`), now)
	mock.ExpectQuery(`SELECT .+ FROM events\s+ORDER BY created_at ASC, id ASC`).
		WillReturnRows(rows)

	events, err := queryAllEvents(context.Background(), db)
	if err != nil {
		t.Fatalf("queryAllEvents: %v", err)
	}
	if len(events) != 2 || events[0].ID != 1 || events[1].ID != 2 {
		t.Errorf("events = %+v", events)
	}
}

func TestJSONBBytes(t *testing.T) {
	if jsonbBytes(nil) != nil {
		t.Error("jsonbBytes(nil) should be nil")
	}
	if jsonbBytes(json.RawMessage(``)) != nil {
		t.Error("jsonbBytes(empty) should be nil")
	}
	got, ok := jsonbBytes(json.RawMessage(`{"a":1}`)).([]byte)
	if !ok || string(got) != `{"a":1}` {
		t.Errorf("jsonbBytes = %v", got)
	}
}
