// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	applog "audiorelay/internal/log"
)

// LoggingConn decorates a Conn, logging every frame at debug level and
// keeping byte counters for the close summary.
type LoggingConn struct {
	Conn
	name      string
	bytesIn   atomic.Uint64
	bytesOut  atomic.Uint64
	framesIn  atomic.Uint64
	framesOut atomic.Uint64
}

// NewLoggingConn wraps c; name identifies the connection in log lines.
func NewLoggingConn(c Conn, name string) *LoggingConn {
	applog.Debugf("Transport: %s using LoggingConn (%s)", name, c.RemoteAddr())
	return &LoggingConn{Conn: c, name: name}
}

// Receive logs and forwards the wrapped Receive.
func (l *LoggingConn) Receive() Frame {
	f := l.Conn.Receive()
	switch f.Kind {
	case FrameBinary, FrameText:
		l.framesIn.Add(1)
		l.bytesIn.Add(uint64(len(f.Data)))
		applog.Debugf("Transport: %s <- %s frame (%d bytes)", l.name, f.Kind, len(f.Data))
	default:
		applog.Debugf("Transport: %s <- %s (err: %v)", l.name, f.Kind, f.Err)
	}
	return f
}

// Send logs and forwards the wrapped Send.
func (l *LoggingConn) Send(mt MessageType, payload []byte) error {
	err := l.Conn.Send(mt, payload)
	if err != nil {
		applog.Debugf("Transport: %s -> send failed: %v", l.name, err)
		return err
	}
	l.framesOut.Add(1)
	l.bytesOut.Add(uint64(len(payload)))
	applog.Debugf("Transport: %s -> %d bytes", l.name, len(payload))
	return nil
}

// Close logs the traffic summary and closes the wrapped Conn.
func (l *LoggingConn) Close() error {
	applog.Debugf("Transport: %s closing (in: %d frames/%d bytes, out: %d frames/%d bytes)",
		l.name, l.framesIn.Load(), l.bytesIn.Load(), l.framesOut.Load(), l.bytesOut.Load())
	return l.Conn.Close()
}

// Stats returns the inbound and outbound byte counts.
func (l *LoggingConn) Stats() (in, out uint64) {
	return l.bytesIn.Load(), l.bytesOut.Load()
}

var _ Conn = (*LoggingConn)(nil)
