// Package client implements the client half of the wire protocol: dial,
// upgrade, masked frames out, unmasked frames in. It backs the watch
// command and serves as the reference peer in server tests.
package client

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strings"
	"time"

	"github.com/groblegark/shopwatch/internal/wire"
)

// Conn is an upgraded client connection.
type Conn struct {
	conn net.Conn
	br   *bufio.Reader
}

// Dial connects to a broadcast server and performs the upgrade handshake.
// addr accepts "ws://host:port/path" or a bare "host:port".
func Dial(ctx context.Context, addr string) (*Conn, error) {
	hostport, path := splitAddr(addr)

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", hostport)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", hostport, err)
	}

	key, err := newKey()
	if err != nil {
		conn.Close()
		return nil, err
	}

	request := "GET " + path + " HTTP/1.1\r\n" +
		"Host: " + hostport + "\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: " + key + "\r\n" +
		"Sec-WebSocket-Version: 13\r\n\r\n"

	conn.SetDeadline(time.Now().Add(10 * time.Second))
	if _, err := conn.Write([]byte(request)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("writing upgrade request: %w", err)
	}

	br := bufio.NewReader(conn)
	tp := textproto.NewReader(br)
	status, err := tp.ReadLine()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading upgrade response: %w", err)
	}
	if !strings.Contains(status, "101") {
		conn.Close()
		return nil, fmt.Errorf("server refused upgrade: %q", status)
	}
	headers, err := tp.ReadMIMEHeader()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading upgrade headers: %w", err)
	}
	if got, want := headers.Get("Sec-Websocket-Accept"), wire.ComputeAccept(key); got != want {
		conn.Close()
		return nil, fmt.Errorf("bad Sec-WebSocket-Accept: got %q, want %q", got, want)
	}
	conn.SetDeadline(time.Time{})

	return &Conn{conn: conn, br: br}, nil
}

func splitAddr(addr string) (hostport, path string) {
	addr = strings.TrimPrefix(addr, "ws://")
	path = "/"
	if i := strings.Index(addr, "/"); i >= 0 {
		path = addr[i:]
		addr = addr[:i]
	}
	return addr, path
}

func newKey() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw[:]), nil
}

// Send marshals v and writes it as a masked text frame.
func (c *Conn) Send(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}
	return c.SendText(payload)
}

// SendText writes payload as a masked text frame.
func (c *Conn) SendText(payload []byte) error {
	if _, err := c.conn.Write(wire.EncodeMaskedText(payload)); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// Subscribe sends the subscribe control message for a kind
// ("stock", "orders", "offers", "reviews").
func (c *Conn) Subscribe(kind string) error {
	return c.Send(map[string]string{"type": "subscribe_" + kind})
}

// Read returns the payload of the next text frame. Pings are answered
// transparently; a close frame or broken socket surfaces as io.EOF.
func (c *Conn) Read() ([]byte, error) {
	for {
		frame, err := wire.ReadServerFrame(c.br)
		if err != nil {
			return nil, err
		}
		switch frame.Opcode {
		case wire.OpText:
			return frame.Payload, nil
		case wire.OpPing:
			if _, err := c.conn.Write(wire.EncodeMaskedControl(wire.OpPong, frame.Payload)); err != nil {
				return nil, err
			}
		case wire.OpClose:
			return nil, io.EOF
		}
	}
}

// ReadDeadline sets the deadline for subsequent Read calls.
func (c *Conn) ReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// Close sends a close frame and tears down the socket.
func (c *Conn) Close() error {
	_, _ = c.conn.Write(wire.EncodeMaskedControl(wire.OpClose, nil))
	return c.conn.Close()
}
