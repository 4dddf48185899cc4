package model

import (
	"encoding/json"
	"time"
)

// Well-known event types written by the shop's CRUD layer. The log also
// accepts free-form types for test and demo traffic.
const (
	EventStockUpdate = "stock_update"
	EventOrderStatus = "order_status"
	EventNewOffer    = "new_offer"
	EventNewReview   = "new_review"
)

// Event is one record in the append-only event log. The CRUD layer inserts
// rows whenever a relevant business action occurs; this service only reads
// and deletes them.
type Event struct {
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
