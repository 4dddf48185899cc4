package wire

import (
	"bufio"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
)

// websocketGUID is the fixed GUID the protocol appends to the client key
// before hashing (RFC 6455 §1.3).
const websocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// ErrHandshakeFailed indicates the bytes read after accept() did not carry
// a usable upgrade request. The connection is dropped without a response.
var ErrHandshakeFailed = errors.New("websocket handshake failed")

// ComputeAccept derives the Sec-WebSocket-Accept value for a client key.
func ComputeAccept(key string) string {
	sum := sha1.Sum([]byte(key + websocketGUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Upgrade performs the server half of the one-time HTTP upgrade exchange on
// a freshly accepted connection. br must wrap conn so that bytes already
// buffered by the caller are not lost. On success the connection speaks
// frames; on failure nothing has been written and the caller must drop the
// socket.
func Upgrade(conn net.Conn, br *bufio.Reader) error {
	tp := textproto.NewReader(br)

	// Request line. Only sanity-checked; the path is not interpreted.
	line, err := tp.ReadLine()
	if err != nil {
		return fmt.Errorf("%w: reading request line: %v", ErrHandshakeFailed, err)
	}
	if !strings.HasPrefix(line, "GET ") {
		return fmt.Errorf("%w: not a GET request: %q", ErrHandshakeFailed, line)
	}

	headers, err := tp.ReadMIMEHeader()
	if err != nil {
		return fmt.Errorf("%w: reading headers: %v", ErrHandshakeFailed, err)
	}

	key := strings.TrimSpace(headers.Get("Sec-Websocket-Key"))
	if key == "" {
		return fmt.Errorf("%w: missing Sec-WebSocket-Key header", ErrHandshakeFailed)
	}

	response := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + ComputeAccept(key) + "\r\n\r\n"
	if _, err := conn.Write([]byte(response)); err != nil {
		return fmt.Errorf("%w: writing response: %v", ErrHandshakeFailed, err)
	}
	return nil
}
