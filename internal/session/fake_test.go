// SPDX-License-Identifier: MIT
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"audiorelay/internal/pipeline"
	"audiorelay/internal/transport"
)

// fakeConn is an in-memory transport.Conn. Frames pushed with deliver are
// returned by Receive; Close makes Receive report FrameClosed.
type fakeConn struct {
	addr    string
	inbound chan transport.Frame
	done    chan struct{}
	once    sync.Once

	mu      sync.Mutex
	sent    []sentMessage
	sendErr error
	sentCh  chan sentMessage

	// stall, when set, makes Send wait until it is closed or the conn is.
	stall chan struct{}
}

type sentMessage struct {
	mt      transport.MessageType
	payload []byte
}

func newFakeConn(addr string) *fakeConn {
	return &fakeConn{
		addr:    addr,
		inbound: make(chan transport.Frame, 16),
		done:    make(chan struct{}),
		sentCh:  make(chan sentMessage, 64),
	}
}

func (c *fakeConn) deliver(f transport.Frame) {
	c.inbound <- f
}

func (c *fakeConn) deliverBinary(data ...byte) {
	c.deliver(transport.Frame{Kind: transport.FrameBinary, Data: data})
}

func (c *fakeConn) Receive() transport.Frame {
	select {
	case f := <-c.inbound:
		return f
	case <-c.done:
		return transport.Frame{Kind: transport.FrameClosed}
	}
}

func (c *fakeConn) Send(mt transport.MessageType, payload []byte) error {
	if c.stall != nil {
		select {
		case <-c.stall:
		case <-c.done:
		}
	}
	select {
	case <-c.done:
		return errors.New("fake: use of closed connection")
	default:
	}

	c.mu.Lock()
	err := c.sendErr
	if err == nil {
		c.sent = append(c.sent, sentMessage{mt, append([]byte(nil), payload...)})
	}
	c.mu.Unlock()

	if err == nil {
		select {
		case c.sentCh <- sentMessage{mt, payload}:
		default:
		}
	}
	return err
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) RemoteAddr() string { return c.addr }

func (c *fakeConn) failSends(err error) {
	c.mu.Lock()
	c.sendErr = err
	c.mu.Unlock()
}

func (c *fakeConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// waitSent waits for the next outbound message.
func (c *fakeConn) waitSent(t *testing.T) sentMessage {
	t.Helper()
	select {
	case m := <-c.sentCh:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for an outbound message")
		return sentMessage{}
	}
}

// fakeProcessor records windows and returns a result naming the window size.
type fakeProcessor struct {
	mu      sync.Mutex
	windows []pipeline.Window
	delay   time.Duration
	fail    bool
}

func (p *fakeProcessor) RunWindow(ctx context.Context, w pipeline.Window) (pipeline.Result, bool) {
	p.mu.Lock()
	p.windows = append(p.windows, w)
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return pipeline.Result{}, false
		}
	}
	if p.fail {
		return pipeline.Result{}, false
	}
	return pipeline.Result{
		Original:    fmt.Sprintf("%d bytes", len(w.Data)),
		Translation: fmt.Sprintf("%v", w.Data),
		Timestamp:   float64(w.DrainedAt.Unix()),
	}, true
}

func (p *fakeProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.windows)
}

func decodeResult(t *testing.T, m sentMessage) pipeline.Result {
	t.Helper()
	if m.mt != transport.MessageText {
		t.Fatalf("message type = %v, want text", m.mt)
	}
	var res pipeline.Result
	if err := json.Unmarshal(m.payload, &res); err != nil {
		t.Fatalf("invalid result JSON %q: %v", m.payload, err)
	}
	return res
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}
