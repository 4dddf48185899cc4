// Package hub implements the dispatch loop: it owns the registry of
// upgraded connections, accepts and upgrades new sockets, reads client
// control messages, and on every tick polls the event source and fans the
// polled events out to every registered client.
package hub

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/groblegark/shopwatch/internal/connid"
	"github.com/groblegark/shopwatch/internal/eventlog"
	"github.com/groblegark/shopwatch/internal/model"
	"github.com/groblegark/shopwatch/internal/wire"
)

const (
	// handshakeTimeout bounds the upgrade exchange on a fresh socket.
	handshakeTimeout = 10 * time.Second

	// writeTimeout bounds a single frame write to a client.
	writeTimeout = 10 * time.Second

	// outboundBuffer is the per-client outbound frame queue. A client whose
	// queue is full cannot absorb broadcasts and is dropped rather than
	// allowed to stall the loop.
	outboundBuffer = 64
)

// Catalog is the read-only products query used for the initial snapshot.
type Catalog interface {
	LowStockProducts(ctx context.Context, limit int) ([]*model.Product, error)
}

// Options tune the dispatch loop. Zero values select the defaults.
type Options struct {
	Tick          time.Duration // multiplexer cadence (default 1s)
	PollWindow    time.Duration // event look-back per tick (default 5s)
	Retention     time.Duration // event log retention (default 1h)
	SnapshotLimit int           // products in the initial snapshot (default 5)
	StrictFrames  bool          // reject unmasked client frames
}

func (o *Options) fillDefaults() {
	if o.Tick <= 0 {
		o.Tick = time.Second
	}
	if o.PollWindow <= 0 {
		o.PollWindow = 5 * time.Second
	}
	if o.Retention <= 0 {
		o.Retention = time.Hour
	}
	if o.SnapshotLimit <= 0 {
		o.SnapshotLimit = 5
	}
}

// inboundFrame is a decoded frame handed from a connection's reader to the
// run loop, tagged with the connection id.
type inboundFrame struct {
	id     string
	opcode byte
	data   []byte
}

// Hub is the broadcast server. The clients map is touched only by the run
// loop goroutine; readers and writers communicate with it over channels, so
// the registry needs no lock.
type Hub struct {
	source  eventlog.Source
	catalog Catalog
	logger  *slog.Logger
	opts    Options

	register   chan *client
	unregister chan string
	inbound    chan inboundFrame
	done       chan struct{}

	clients map[string]*client
	count   atomic.Int64
}

// New creates a hub over the given event source and product catalog.
func New(source eventlog.Source, catalog Catalog, logger *slog.Logger, opts Options) *Hub {
	opts.fillDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		source:     source,
		catalog:    catalog,
		logger:     logger,
		opts:       opts,
		register:   make(chan *client),
		unregister: make(chan string, outboundBuffer),
		inbound:    make(chan inboundFrame, outboundBuffer),
		done:       make(chan struct{}),
		clients:    make(map[string]*client),
	}
}

// ClientCount reports the current registry size.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Serve accepts connections on ln and runs the dispatch loop until ctx is
// cancelled. It always returns a nil error after a clean shutdown; the
// caller owns listener creation so that a failure to bind stays fatal at
// startup.
func (h *Hub) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	go h.acceptLoop(ctx, ln)
	h.run(ctx)
	return nil
}

func (h *Hub) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			h.logger.Warn("accept failed", "err", err)
			continue
		}
		go h.handleConn(ctx, conn)
	}
}

// handleConn upgrades a fresh socket and, on success, registers it and
// starts its reader. A failed handshake drops the socket silently; it never
// enters the registry.
func (h *Hub) handleConn(ctx context.Context, conn net.Conn) {
	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	br := bufio.NewReader(conn)
	if err := wire.Upgrade(conn, br); err != nil {
		h.logger.Debug("handshake failed", "remote", conn.RemoteAddr(), "err", err)
		conn.Close()
		return
	}
	conn.SetReadDeadline(time.Time{})

	id, err := connid.Generate()
	if err != nil {
		h.logger.Error("connection id generation failed", "err", err)
		conn.Close()
		return
	}

	c := &client{
		id:          id,
		conn:        conn,
		out:         make(chan []byte, outboundBuffer),
		connectedAt: time.Now(),
		subs:        make(map[string]bool),
	}

	select {
	case h.register <- c:
	case <-ctx.Done():
		conn.Close()
		return
	}

	go c.writeLoop(h)
	c.readLoop(h, br)
}

func (h *Hub) run(ctx context.Context) {
	ticker := time.NewTicker(h.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for id := range h.clients {
				h.removeClient(id)
			}
			close(h.done)
			return

		case c := <-h.register:
			h.clients[c.id] = c
			h.count.Store(int64(len(h.clients)))
			h.logger.Info("client connected", "conn", c.id, "remote", c.conn.RemoteAddr())
			h.sendSnapshot(ctx, c)

		case id := <-h.unregister:
			h.removeClient(id)

		case in := <-h.inbound:
			c, ok := h.clients[in.id]
			if !ok {
				continue
			}
			h.handleFrame(c, in)

		case <-ticker.C:
			h.tick(ctx)
		}
	}
}

// removeClient is idempotent: removing an already-removed id is a no-op.
func (h *Hub) removeClient(id string) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	h.count.Store(int64(len(h.clients)))
	close(c.out)
	c.conn.Close()
	h.logger.Info("client disconnected", "conn", id, "connected_for", time.Since(c.connectedAt).Round(time.Millisecond))
}

// tick polls the event source, fans new events out to every registered
// client, then purges aged-out events. Store errors are logged and the loop
// keeps going; the next tick retries naturally.
func (h *Hub) tick(ctx context.Context) {
	events, err := h.source.PollRecent(ctx, h.opts.PollWindow)
	if err != nil {
		h.logger.Warn("event poll failed", "err", err)
	} else {
		for _, e := range events {
			frame := wire.EncodeText(encodeBroadcast(e))
			for _, c := range h.clients {
				h.trySend(c, frame)
			}
		}
		if len(events) > 0 {
			h.logger.Debug("broadcast events", "events", len(events), "clients", len(h.clients))
		}
	}

	if err := h.source.Purge(ctx, h.opts.Retention); err != nil {
		h.logger.Warn("event purge failed", "err", err)
	}
}

// trySend enqueues an encoded frame without blocking. A full queue means
// the client cannot keep up; it is removed rather than allowed to stall
// everyone else.
func (h *Hub) trySend(c *client, frame []byte) {
	select {
	case c.out <- frame:
	default:
		h.logger.Warn("dropping slow client", "conn", c.id)
		h.removeClient(c.id)
	}
}

func (h *Hub) sendSnapshot(ctx context.Context, c *client) {
	products, err := h.catalog.LowStockProducts(ctx, h.opts.SnapshotLimit)
	if err != nil {
		h.logger.Warn("low stock query failed", "err", err)
	}
	h.trySend(c, wire.EncodeText(encodeInitialData(products)))
}

// handleFrame processes one decoded frame from a registered client.
func (h *Hub) handleFrame(c *client, in inboundFrame) {
	switch in.opcode {
	case wire.OpClose:
		h.removeClient(c.id)
	case wire.OpPing:
		h.trySend(c, wire.EncodeControl(wire.OpPong, in.data))
	case wire.OpText:
		h.handleControl(c, in.data)
	default:
		// Binary, pong and continuation frames carry nothing we act on.
	}
}

// handleControl interprets a text payload as a JSON control message.
// Subscriptions are acknowledged and remembered but not enforced: every
// client receives every broadcast regardless of what it subscribed to.
func (h *Hub) handleControl(c *client, payload []byte) {
	kind, ok := parseSubscribe(payload)
	if !ok {
		h.trySend(c, wire.EncodeText(encodeError("Unknown message type")))
		return
	}
	c.subs[kind] = true
	h.logger.Debug("subscription acknowledged", "conn", c.id, "kind", kind)
	h.trySend(c, wire.EncodeText(encodeSubscribed(kind)))
}
