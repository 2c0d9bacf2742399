// SPDX-License-Identifier: MIT
/*
Package client captures microphone audio and streams it to the relay server.

Data flow:
- The capture callback copies samples into a bounded ChunkQueue
- The sender drains the queue and writes binary frames
- The reader decodes JSON results and hands them to a ResultSink

The queue drops the newest chunk when full, so a slow network never stalls
the audio callback.
*/
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"audiorelay/internal/audio"
	applog "audiorelay/internal/log"
	"audiorelay/internal/pipeline"
	"audiorelay/internal/transport"
)

// ErrServerClosed is returned by Run when the server ends the connection.
var ErrServerClosed = errors.New("client: server closed the connection")

// ResultSink receives results decoded from the server.
type ResultSink interface {
	HandleResult(pipeline.Result)
}

// SinkFunc adapts a function to ResultSink.
type SinkFunc func(pipeline.Result)

// HandleResult calls f(r).
func (f SinkFunc) HandleResult(r pipeline.Result) { f(r) }

// StreamerOptions configures a Streamer.
type StreamerOptions struct {
	// SampleRate is the stream rate the server expects.
	SampleRate int
	// CaptureRate is the device rate; chunks are resampled when it differs.
	CaptureRate float64
	// PollInterval is how often an idle sender checks for cancellation.
	PollInterval time.Duration
}

// Stats counts traffic for one Run.
type Stats struct {
	ChunksSent uint64
	BytesSent  uint64
	Results    uint64
	Dropped    uint64
}

// Streamer pumps captured chunks to the server and results back to a sink.
type Streamer struct {
	conn  transport.Conn
	queue *audio.ChunkQueue
	sink  ResultSink
	opts  StreamerOptions

	// resampler is nil when the capture and stream rates match.
	resampler *audio.Resampler

	chunksSent atomic.Uint64
	bytesSent  atomic.Uint64
	results    atomic.Uint64
}

// NewStreamer creates a streamer over an established connection.
func NewStreamer(conn transport.Conn, queue *audio.ChunkQueue, sink ResultSink, opts StreamerOptions) *Streamer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	s := &Streamer{conn: conn, queue: queue, sink: sink, opts: opts}
	if opts.CaptureRate > 0 && opts.CaptureRate != float64(opts.SampleRate) {
		s.resampler = audio.NewResampler(opts.CaptureRate, float64(opts.SampleRate))
	}
	return s
}

// Run streams until ctx is cancelled, the server closes the connection or a
// send fails. The connection is closed on return.
func (s *Streamer) Run(ctx context.Context) error {
	readErr := make(chan error, 1)
	go func() { readErr <- s.readResults() }()

	readerDone, err := s.send(ctx, readErr)
	s.conn.Close()
	if !readerDone {
		// Wait for the reader so no result is delivered after Run returns.
		<-readErr
	}
	return err
}

// send is the sender loop. A poll tick with an empty queue is only a chance
// to observe cancellation.
// It reports whether the reader has already finished.
func (s *Streamer) send(ctx context.Context, readErr <-chan error) (bool, error) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case chunk := <-s.queue.Chunks():
			if err := s.sendChunk(chunk); err != nil {
				return false, fmt.Errorf("failed to send audio: %w", err)
			}
		case err := <-readErr:
			if err == nil {
				return true, ErrServerClosed
			}
			return true, err
		case <-ticker.C:
			if ctx.Err() != nil {
				return false, nil
			}
		case <-ctx.Done():
			return false, nil
		}
	}
}

func (s *Streamer) sendChunk(chunk []float32) error {
	if len(chunk) == 0 {
		return nil
	}
	if s.resampler != nil {
		chunk = s.resampler.Process(chunk)
		if len(chunk) == 0 {
			return nil
		}
	}
	payload := audio.EncodeFloat32LE(chunk)
	if err := s.conn.Send(transport.MessageBinary, payload); err != nil {
		return err
	}
	s.chunksSent.Add(1)
	s.bytesSent.Add(uint64(len(payload)))
	return nil
}

// readResults decodes text frames until the connection ends. It returns
// nil on a clean close.
func (s *Streamer) readResults() error {
	for {
		f := s.conn.Receive()
		switch f.Kind {
		case transport.FrameText:
			var res pipeline.Result
			if err := json.Unmarshal(f.Data, &res); err != nil {
				applog.Warnf("Client: ignoring malformed result: %v", err)
				continue
			}
			s.results.Add(1)
			if s.sink != nil {
				s.sink.HandleResult(res)
			}
		case transport.FrameBinary:
			applog.Debugf("Client: ignoring relayed audio (%d bytes)", len(f.Data))
		case transport.FrameClosed:
			return f.Err
		case transport.FrameError:
			return fmt.Errorf("receive failed: %w", f.Err)
		}
	}
}

// Stats returns the traffic counters.
func (s *Streamer) Stats() Stats {
	return Stats{
		ChunksSent: s.chunksSent.Load(),
		BytesSent:  s.bytesSent.Load(),
		Results:    s.results.Load(),
		Dropped:    s.queue.Dropped(),
	}
}
