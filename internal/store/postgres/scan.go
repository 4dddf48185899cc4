package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/groblegark/shopwatch/internal/model"
)

// jsonbBytes normalizes a payload for a jsonb column; NULL when empty.
func jsonbBytes(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	var events []*model.Event
	for rows.Next() {
		var e model.Event
		var data []byte
		if err := rows.Scan(&e.ID, &e.Type, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(data) > 0 {
			e.Payload = json.RawMessage(data)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func scanProduct(rows *sql.Rows) (*model.Product, error) {
	var p model.Product
	if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock); err != nil {
		return nil, err
	}
	return &p, nil
}
