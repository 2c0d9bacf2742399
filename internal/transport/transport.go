// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"fmt"
)

// FrameKind tags the outcome of a single Receive call.
type FrameKind int

const (
	// FrameBinary carries an audio chunk in Data.
	FrameBinary FrameKind = iota
	// FrameText carries a text message in Data.
	FrameText
	// FrameClosed reports that the peer or the local side closed the connection.
	FrameClosed
	// FrameError reports a transport failure in Err.
	FrameError
)

// String returns the name of the frame kind.
func (k FrameKind) String() string {
	switch k {
	case FrameBinary:
		return "binary"
	case FrameText:
		return "text"
	case FrameClosed:
		return "closed"
	case FrameError:
		return "error"
	default:
		return "unknown"
	}
}

// Frame is the tagged result of Conn.Receive.
type Frame struct {
	Kind FrameKind
	Data []byte
	Err  error
}

// Terminal reports whether no further frames will arrive.
func (f Frame) Terminal() bool {
	return f.Kind == FrameClosed || f.Kind == FrameError
}

// MessageType selects the frame type of an outbound message.
type MessageType int

const (
	MessageBinary MessageType = iota
	MessageText
)

// Conn is one bidirectional message connection.
// Implementations must allow Send and Close to be called from any goroutine
// while a single reader calls Receive.
type Conn interface {
	Receive() Frame
	Send(mt MessageType, payload []byte) error
	Close() error
	RemoteAddr() string
}

// SendJSON marshals v and sends it as a text message.
func SendJSON(c Conn, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return c.Send(MessageText, payload)
}
