package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/groblegark/shopwatch/internal/model"
)

// DefaultSubject is the wildcard subject the CRUD layer publishes business
// events under, one subject token per event type (shop.events.stock_update,
// shop.events.order_status, ...).
const DefaultSubject = "shop.events.>"

// NATSSource substitutes a message broker for the polled event log. Events
// arrive pushed and are buffered in a bounded queue that the dispatch loop
// drains on its normal tick; retention belongs to the broker, so Purge is a
// no-op.
type NATSSource struct {
	conn  *nats.Conn
	sub   *nats.Subscription
	queue *Queue
}

var _ Source = (*NATSSource)(nil)

// NewNATSSource connects to NATS with automatic reconnection and subscribes
// to subject (DefaultSubject when empty). Messages are JSON-encoded events;
// a missing type falls back to the last subject token.
func NewNATSSource(url, subject string, opts ...nats.Option) (*NATSSource, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	defaults := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}

	s := &NATSSource{conn: nc, queue: NewQueue(DefaultQueueCapacity)}

	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		s.queue.Push(decodeEventMsg(msg))
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	// Flush ensures the subscription is registered on the server before
	// returning, so that events published on other connections are routed.
	if err := nc.Flush(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("flushing subscription: %w", err)
	}

	s.sub = sub
	return s, nil
}

func decodeEventMsg(msg *nats.Msg) *model.Event {
	var e model.Event
	if err := json.Unmarshal(msg.Data, &e); err != nil || (e.Type == "" && e.Payload == nil) {
		// Not an event envelope; carry the raw bytes as the payload.
		e = model.Event{Payload: json.RawMessage(msg.Data)}
	}
	if e.Type == "" {
		if i := strings.LastIndex(msg.Subject, "."); i >= 0 {
			e.Type = msg.Subject[i+1:]
		} else {
			e.Type = msg.Subject
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return &e
}

func (s *NATSSource) PollRecent(ctx context.Context, window time.Duration) ([]*model.Event, error) {
	return s.queue.PollRecent(ctx, window)
}

func (s *NATSSource) Purge(ctx context.Context, olderThan time.Duration) error {
	return nil
}

// Pending reports how many events are buffered but not yet drained.
func (s *NATSSource) Pending() int {
	return s.queue.Len()
}

func (s *NATSSource) Close() error {
	if s.sub != nil {
		_ = s.sub.Unsubscribe()
	}
	s.conn.Close()
	return nil
}
