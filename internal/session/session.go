// SPDX-License-Identifier: MIT
/*
Package session owns the per-client lifecycle of the relay server.

A Session moves through CONNECTING, ACTIVE, CLOSING and CLOSED exactly once.
Only ACTIVE sessions receive results or broadcasts. The Registry tracks live
sessions and the Loop drives one session from handshake to teardown.
*/
package session

import (
	"errors"
	"sync/atomic"
	"time"

	"audiorelay/internal/audio"
	"audiorelay/internal/transport"

	"github.com/google/uuid"
)

var (
	// ErrSessionClosed is returned when sending to or registering a session
	// that is no longer usable.
	ErrSessionClosed = errors.New("session: closed")
	// ErrNoConn is returned when registering a session without a connection.
	ErrNoConn = errors.New("session: no connection")
)

// State is the lifecycle position of a session.
type State int32

const (
	StateConnecting State = iota
	StateActive
	StateClosing
	StateClosed
)

// String returns the upper-case state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateActive:
		return "ACTIVE"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Session is one connected client and the audio it has buffered.
type Session struct {
	id          string
	conn        transport.Conn
	buffer      *audio.Buffer
	state       atomic.Int32
	connectedAt time.Time

	// done is closed when the session leaves ACTIVE.
	done chan struct{}
}

// New creates a session in the CONNECTING state whose buffer is ready at
// thresholdBytes.
func New(conn transport.Conn, thresholdBytes int) *Session {
	return &Session{
		id:          uuid.NewString(),
		conn:        conn,
		buffer:      audio.NewBuffer(thresholdBytes),
		connectedAt: time.Now(),
		done:        make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Buffer returns the session's window buffer.
func (s *Session) Buffer() *audio.Buffer { return s.buffer }

// ConnectedAt returns when the session was created.
func (s *Session) ConnectedAt() time.Time { return s.connectedAt }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Done is closed once the session starts closing.
func (s *Session) Done() <-chan struct{} { return s.done }

// IsRecording reports whether the session is accepting audio.
func (s *Session) IsRecording() bool { return s.State() == StateActive }

// RemoteAddr returns the peer address, or "" without a connection.
func (s *Session) RemoteAddr() string {
	if s.conn == nil {
		return ""
	}
	return s.conn.RemoteAddr()
}

// activate moves CONNECTING to ACTIVE.
func (s *Session) activate() bool {
	return s.state.CompareAndSwap(int32(StateConnecting), int32(StateActive))
}

// beginClose moves any earlier state to CLOSING and reports whether this
// call made the transition. The winning call closes done.
func (s *Session) beginClose() bool {
	for {
		cur := s.state.Load()
		if cur >= int32(StateClosing) {
			return false
		}
		if s.state.CompareAndSwap(cur, int32(StateClosing)) {
			close(s.done)
			return true
		}
	}
}

func (s *Session) markClosed() {
	s.state.Store(int32(StateClosed))
}

// Send writes one message if the session is ACTIVE.
func (s *Session) Send(mt transport.MessageType, payload []byte) error {
	if s.State() != StateActive {
		return ErrSessionClosed
	}
	return s.conn.Send(mt, payload)
}

// SendJSON writes v as a text message if the session is ACTIVE.
func (s *Session) SendJSON(v any) error {
	if s.State() != StateActive {
		return ErrSessionClosed
	}
	return transport.SendJSON(s.conn, v)
}

// Close starts teardown and closes the connection, which ends the
// session's loop. Safe to call more than once.
func (s *Session) Close() error {
	s.beginClose()
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
