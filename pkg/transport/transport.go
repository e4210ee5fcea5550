// Package transport wraps a WebSocket connection (§6) down to the three
// frame kinds the synchronization protocol actually cares about: Binary
// (protocol payloads), Close (clean shutdown), and Other (ignored). The
// rest of this repository never touches github.com/coder/websocket
// directly, so a different message-framed transport could be substituted
// here without disturbing the protocol driver.
package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

// maxFrameBytes bounds a single frame's size. A Manifest or directory
// archive frame can legitimately be large, so this is generous rather
// than tight.
const maxFrameBytes = 1 << 30

// FrameKind classifies an inbound frame.
type FrameKind int

const (
	// FrameBinary carries a protocol payload.
	FrameBinary FrameKind = iota
	// FrameClose indicates the peer closed the connection cleanly.
	FrameClose
	// FrameOther is any frame kind the protocol doesn't assign meaning to
	// (e.g. a text frame); it is ignored by callers.
	FrameOther
)

// Conn is a bidirectional, message-framed connection between a sender and
// a receiver.
type Conn struct {
	ws *websocket.Conn
}

// Dial connects to a receiver at addr (an ws:// or wss:// URL, or a bare
// host:port which is normalized to ws://host:port).
func Dial(ctx context.Context, addr string) (*Conn, error) {
	ws, _, err := websocket.Dial(ctx, normalizeAddr(addr), nil)
	if err != nil {
		return nil, fmt.Errorf("unable to dial %s: %w", addr, err)
	}
	ws.SetReadLimit(maxFrameBytes)
	return &Conn{ws: ws}, nil
}

func normalizeAddr(addr string) string {
	for _, prefix := range []string{"ws://", "wss://"} {
		if len(addr) >= len(prefix) && addr[:len(prefix)] == prefix {
			return addr
		}
	}
	return "ws://" + addr
}

// Accept upgrades an incoming HTTP request to a Conn. Used by a listening
// Apply Engine to accept its single session.
func Accept(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to accept connection: %w", err)
	}
	ws.SetReadLimit(maxFrameBytes)
	return &Conn{ws: ws}, nil
}

// Send writes payload as a single binary frame.
func (c *Conn) Send(ctx context.Context, payload []byte) error {
	if err := c.ws.Write(ctx, websocket.MessageBinary, payload); err != nil {
		return fmt.Errorf("unable to send frame: %w", err)
	}
	return nil
}

// Receive reads the next frame. For FrameBinary, payload holds the frame's
// bytes; for FrameClose and FrameOther, payload is nil.
func (c *Conn) Receive(ctx context.Context) (FrameKind, []byte, error) {
	kind, payload, err := c.ws.Read(ctx)
	if err != nil {
		if websocket.CloseStatus(err) != -1 {
			return FrameClose, nil, nil
		}
		return FrameOther, nil, fmt.Errorf("unable to read frame: %w", err)
	}
	if kind == websocket.MessageBinary {
		return FrameBinary, payload, nil
	}
	return FrameOther, nil, nil
}

// Close sends a clean close frame and releases the underlying connection.
func (c *Conn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "session closed")
}

// CloseWithError closes the connection abnormally, reporting a protocol
// violation to the peer.
func (c *Conn) CloseWithError(reason string) error {
	return c.ws.Close(websocket.StatusProtocolError, reason)
}
