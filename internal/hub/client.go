package hub

import (
	"io"
	"net"
	"time"

	"github.com/groblegark/shopwatch/internal/wire"
)

// client is one upgraded connection. The hub's run loop owns the registry
// entry; the reader and writer goroutines only touch the socket and the
// outbound queue.
type client struct {
	id          string
	conn        net.Conn
	out         chan []byte
	connectedAt time.Time
	subs        map[string]bool // acknowledged subscription kinds (not enforced)
}

// readLoop reads frames until the connection dies. Any read error — EOF,
// reset, malformed framing — means the connection is done; the hub removes
// it exactly once.
func (c *client) readLoop(h *Hub, r io.Reader) {
	defer c.requestRemoval(h)

	for {
		frame, err := wire.ReadFrame(r, h.opts.StrictFrames)
		if err != nil {
			return
		}
		select {
		case h.inbound <- inboundFrame{id: c.id, opcode: frame.Opcode, data: frame.Payload}:
		case <-h.done:
			return
		}
		if frame.Opcode == wire.OpClose {
			return
		}
	}
}

// writeLoop drains the outbound queue onto the socket. The hub closes the
// queue on removal, which ends the loop.
func (c *client) writeLoop(h *Hub) {
	for frame := range c.out {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := c.conn.Write(frame); err != nil {
			c.requestRemoval(h)
			// Keep draining so the run loop's close of the queue is never
			// blocked on a dead socket.
			for range c.out {
			}
			return
		}
	}
}

func (c *client) requestRemoval(h *Hub) {
	select {
	case h.unregister <- c.id:
	case <-h.done:
	}
}
