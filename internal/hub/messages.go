package hub

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/groblegark/shopwatch/internal/model"
)

// Wire message shapes. Server-to-client messages are JSON text frames;
// client-to-server control messages are JSON objects with a "type" field.

type broadcastMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

type initialDataMessage struct {
	Type             string           `json:"type"`
	LowStockProducts []*model.Product `json:"low_stock_products"`
	Message          string           `json:"message"`
}

type replyMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// subscribeAcks maps recognized control message types to the kind echoed in
// the acknowledgment. Anything else is an unknown message.
var subscribeAcks = map[string]string{
	"subscribe_stock":   "stock",
	"subscribe_orders":  "orders",
	"subscribe_offers":  "offers",
	"subscribe_reviews": "reviews",
}

// parseSubscribe extracts the subscription kind from a client control
// payload. ok is false for unknown types and undecodable payloads alike.
func parseSubscribe(payload []byte) (kind string, ok bool) {
	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return "", false
	}
	kind, ok = subscribeAcks[msg.Type]
	return kind, ok
}

func encodeBroadcast(e *model.Event) []byte {
	data := e.Payload
	if data == nil {
		data = json.RawMessage(`null`)
	}
	return mustMarshal(broadcastMessage{
		Type:      e.Type,
		Data:      data,
		Timestamp: e.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func encodeInitialData(products []*model.Product) []byte {
	if products == nil {
		products = []*model.Product{}
	}
	return mustMarshal(initialDataMessage{
		Type:             "initial_data",
		LowStockProducts: products,
		Message:          "Connected to real-time updates",
	})
}

func encodeSubscribed(kind string) []byte {
	return mustMarshal(replyMessage{
		Type:    kind + "_subscribed",
		Message: "Subscribed to " + kind + " updates",
	})
}

func encodeError(message string) []byte {
	return mustMarshal(replyMessage{Type: "error", Message: message})
}

// mustMarshal serializes the fixed message shapes above; they contain
// nothing that can fail to marshal, but a payload of invalid JSON from the
// log would. Fall back to an empty object rather than take the loop down.
func mustMarshal(v any) []byte {
	out, err := json.Marshal(v)
	if err != nil {
		slog.Warn("marshaling wire message", "err", err)
		return []byte(`{}`)
	}
	return out
}
