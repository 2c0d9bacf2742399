// SPDX-License-Identifier: MIT
package session

import (
	"context"
	"errors"
	"time"

	applog "audiorelay/internal/log"
	"audiorelay/internal/pipeline"
	"audiorelay/internal/transport"
)

// Processor turns a drained window into a result.
type Processor interface {
	RunWindow(ctx context.Context, w pipeline.Window) (pipeline.Result, bool)
}

// LoopOptions configures a Loop.
type LoopOptions struct {
	// ThresholdBytes is the buffered size that makes a window ready.
	ThresholdBytes int
	// RelayAudio broadcasts every inbound chunk to all active sessions.
	RelayAudio bool
}

// Loop drives sessions from handshake to teardown.
type Loop struct {
	registry  *Registry
	processor Processor
	opts      LoopOptions
	now       func() time.Time
}

// NewLoop creates a loop that registers sessions in registry and hands
// ready windows to processor.
func NewLoop(registry *Registry, processor Processor, opts LoopOptions) *Loop {
	return &Loop{
		registry:  registry,
		processor: processor,
		opts:      opts,
		now:       time.Now,
	}
}

// relayQueueSize bounds the chunks waiting to be fanned out per sender.
const relayQueueSize = 64

// Serve runs one session over conn until the peer disconnects, the
// transport fails, a result cannot be delivered or ctx is cancelled.
// It returns once the session is CLOSED. Any partial window is discarded.
func (l *Loop) Serve(ctx context.Context, conn transport.Conn) error {
	s := New(conn, l.opts.ThresholdBytes)
	if err := l.registry.Add(s); err != nil {
		if conn != nil {
			conn.Close()
		}
		return err
	}
	s.activate()
	applog.Infof("Session: %s connected from %s (%d active)", s.id, s.RemoteAddr(), l.registry.Len())

	workerCtx, cancelWorker := context.WithCancel(ctx)
	windows := make(chan pipeline.Window, 1)
	go l.process(workerCtx, s, windows)

	var relay chan []byte
	if l.opts.RelayAudio {
		relay = make(chan []byte, relayQueueSize)
		go l.relay(relay)
	}

	stop := context.AfterFunc(ctx, func() {
		applog.Debugf("Session: %s closing on shutdown", s.id)
		s.Close()
	})

	l.read(ctx, s, windows, relay)

	stop()
	s.beginClose()
	cancelWorker()
	l.registry.Remove(s)
	dropped := s.buffer.Discard()
	if err := conn.Close(); err != nil {
		applog.Debugf("Session: %s close: %v", s.id, err)
	}
	close(windows)
	if relay != nil {
		close(relay)
	}
	s.markClosed()

	applog.Infof("Session: %s disconnected (discarded %d buffered bytes, %d active)", s.id, dropped, l.registry.Len())
	return nil
}

// read handles inbound frames one at a time until the session leaves
// ACTIVE. Frames come from receive, so a peer close is seen even while
// read waits for the worker to take a window.
func (l *Loop) read(ctx context.Context, s *Session, windows chan<- pipeline.Window, relay chan<- []byte) {
	frames := make(chan transport.Frame)
	go l.receive(s, frames)

	for {
		var f transport.Frame
		select {
		case f = <-frames:
		case <-s.Done():
			return
		case <-ctx.Done():
			return
		}

		if f.Kind == transport.FrameText {
			applog.Debugf("Session: %s ignoring text frame (%d bytes)", s.id, len(f.Data))
			continue
		}

		s.buffer.Append(f.Data)
		if relay != nil {
			select {
			case relay <- f.Data:
			default:
				applog.Debugf("Session: %s relay queue full, dropping %d bytes", s.id, len(f.Data))
			}
		}
		if !s.buffer.IsReady() {
			continue
		}

		w := pipeline.Window{Data: s.buffer.Drain(), DrainedAt: l.now()}
		applog.Debugf("Session: %s window ready (%d bytes)", s.id, len(w.Data))
		select {
		case windows <- w:
		case <-s.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

// receive pulls frames off the connection and hands binary and text
// frames to read. A close or transport error moves the session to CLOSING.
func (l *Loop) receive(s *Session, frames chan<- transport.Frame) {
	for {
		f := s.conn.Receive()
		switch f.Kind {
		case transport.FrameClosed:
			if f.Err != nil {
				applog.Infof("Session: %s closed by peer: %v", s.id, f.Err)
			}
			s.beginClose()
			return
		case transport.FrameError:
			applog.Warnf("Session: %s receive failed: %v", s.id, f.Err)
			s.beginClose()
			return
		}

		select {
		case frames <- f:
		case <-s.Done():
			return
		}
	}
}

// relay fans one sender's chunks out to every active session. It runs
// off the read path so a slow recipient cannot stall the sender.
func (l *Loop) relay(chunks <-chan []byte) {
	for chunk := range chunks {
		l.registry.Broadcast(transport.MessageBinary, chunk)
	}
}

// process runs windows in drain order, one at a time.
func (l *Loop) process(ctx context.Context, s *Session, windows <-chan pipeline.Window) {
	for w := range windows {
		if ctx.Err() != nil {
			continue
		}
		res, ok := l.processor.RunWindow(ctx, w)
		if !ok {
			continue
		}
		err := s.SendJSON(res)
		switch {
		case err == nil:
			applog.Debugf("Session: %s result sent (%q)", s.id, res.Original)
		case errors.Is(err, ErrSessionClosed):
			applog.Debugf("Session: %s result dropped, session no longer active", s.id)
		default:
			applog.Warnf("Session: %s failed to send result: %v", s.id, err)
			s.Close()
		}
	}
}
