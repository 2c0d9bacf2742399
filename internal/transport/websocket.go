// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultWriteTimeout bounds a single outbound write.
const DefaultWriteTimeout = 10 * time.Second

// closeGracePeriod bounds the close handshake write.
const closeGracePeriod = time.Second

// NewUpgrader returns the upgrader used for audio connections.
func NewUpgrader(readBufferSize, writeBufferSize int) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  readBufferSize,
		WriteBufferSize: writeBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return true // No authentication: any origin may stream
		},
	}
}

// WebSocketConn adapts a gorilla connection to Conn.
//
// Thread Safety:
// - Receive must only be called from one goroutine
// - Send is serialised by writeMu, since gorilla allows one concurrent writer
// - Close is idempotent and unblocks a pending Receive
type WebSocketConn struct {
	conn         *websocket.Conn
	writeMu      sync.Mutex
	writeTimeout time.Duration
	closed       atomic.Bool
	closeOnce    sync.Once
	closeErr     error
}

// NewWebSocketConn wraps an established gorilla connection.
func NewWebSocketConn(conn *websocket.Conn, writeTimeout time.Duration) *WebSocketConn {
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &WebSocketConn{conn: conn, writeTimeout: writeTimeout}
}

// Upgrade completes the server side handshake.
func Upgrade(u *websocket.Upgrader, w http.ResponseWriter, r *http.Request) (*WebSocketConn, error) {
	conn, err := u.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket upgrade: %w", err)
	}
	return NewWebSocketConn(conn, DefaultWriteTimeout), nil
}

// Dial opens a client connection to url.
func Dial(ctx context.Context, url string) (*WebSocketConn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s: %w (status %s)", url, err, resp.Status)
		}
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}
	return NewWebSocketConn(conn, DefaultWriteTimeout), nil
}

// Receive blocks for the next message.
func (c *WebSocketConn) Receive() Frame {
	mt, data, err := c.conn.ReadMessage()
	if err != nil {
		if c.closed.Load() || errors.Is(err, net.ErrClosed) {
			return Frame{Kind: FrameClosed}
		}
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return Frame{Kind: FrameClosed}
			}
			return Frame{Kind: FrameClosed, Err: err}
		}
		return Frame{Kind: FrameError, Err: err}
	}

	switch mt {
	case websocket.BinaryMessage:
		return Frame{Kind: FrameBinary, Data: data}
	default:
		return Frame{Kind: FrameText, Data: data}
	}
}

// Send writes one message.
func (c *WebSocketConn) Send(mt MessageType, payload []byte) error {
	if c.closed.Load() {
		return net.ErrClosed
	}

	wsType := websocket.BinaryMessage
	if mt == MessageText {
		wsType = websocket.TextMessage
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(wsType, payload)
}

// Close sends a normal close frame and closes the underlying connection.
func (c *WebSocketConn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// RemoteAddr returns the peer address.
func (c *WebSocketConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

var _ Conn = (*WebSocketConn)(nil)
