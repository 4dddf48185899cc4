package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/groblegark/shopwatch/internal/model"
)

// eventColumns is the column list used for SELECT statements on the events table.
const eventColumns = `id, event_type, event_data, created_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryRecordEvent(ctx context.Context, db executor, e *model.Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return db.QueryRowContext(ctx, `
		INSERT INTO events (event_type, event_data, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`,
		e.Type,
		jsonbBytes(e.Payload),
		e.CreatedAt,
	).Scan(&e.ID)
}

func queryRecentEvents(ctx context.Context, db executor, since time.Time) ([]*model.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE created_at >= $1
		ORDER BY created_at DESC, id DESC`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func queryAllEvents(ctx context.Context, db executor) ([]*model.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events
		ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func queryPurgeEvents(ctx context.Context, db executor, before time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM events WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func queryLowStockProducts(ctx context.Context, db executor, limit int) ([]*model.Product, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, price, stock FROM products
		ORDER BY stock ASC, id ASC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
