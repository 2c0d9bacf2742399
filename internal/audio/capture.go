// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"audiorelay/internal/config"

	"github.com/gordonklaus/portaudio"
)

// ChunkQueue is the bounded hand-off between the capture callback and the
// sender. Offer never blocks: when the queue is full the newest chunk is
// dropped and counted.
type ChunkQueue struct {
	ch      chan []float32
	dropped atomic.Uint64
}

// NewChunkQueue creates a queue holding at most size chunks.
func NewChunkQueue(size int) *ChunkQueue {
	if size < 1 {
		size = 1
	}
	return &ChunkQueue{ch: make(chan []float32, size)}
}

// Offer enqueues chunk without blocking and reports whether it was kept.
func (q *ChunkQueue) Offer(chunk []float32) bool {
	select {
	case q.ch <- chunk:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Chunks exposes the receive side of the queue.
func (q *ChunkQueue) Chunks() <-chan []float32 {
	return q.ch
}

// Dropped returns the number of chunks discarded because the queue was full.
func (q *ChunkQueue) Dropped() uint64 {
	return q.dropped.Load()
}

// Len returns the number of queued chunks.
func (q *ChunkQueue) Len() int {
	return len(q.ch)
}

// Capture streams mono float32 microphone input into a ChunkQueue.
//
// Thread Safety:
// - The PortAudio callback only copies and offers; it never blocks
// - Start/Stop are serialised by a mutex
type Capture struct {
	mu sync.Mutex

	device          *portaudio.DeviceInfo
	latency         time.Duration
	sampleRate      float64
	framesPerBuffer int
	stream          *portaudio.Stream

	queue    *ChunkQueue
	recorder *Recorder
}

// NewCapture resolves the input device and prepares a capture into queue.
// PortAudio must already be initialized.
func NewCapture(deviceID int, sampleRate float64, framesPerBuffer int, lowLatency bool, queue *ChunkQueue) (*Capture, error) {
	if queue == nil {
		return nil, fmt.Errorf("capture: queue cannot be nil")
	}
	if framesPerBuffer <= 0 {
		return nil, fmt.Errorf("capture: frames per buffer must be positive, got %d", framesPerBuffer)
	}
	device, err := InputDevice(deviceID)
	if err != nil {
		return nil, err
	}
	if device.MaxInputChannels < 1 {
		return nil, fmt.Errorf("capture: device %q has no input channels", device.Name)
	}

	c := &Capture{
		device:          device,
		sampleRate:      sampleRate,
		framesPerBuffer: framesPerBuffer,
		queue:           queue,
	}
	if lowLatency {
		c.latency = device.DefaultLowInputLatency
	} else {
		c.latency = device.DefaultHighInputLatency
	}
	return c, nil
}

// SetRecorder tees every captured chunk into r while it is recording.
func (c *Capture) SetRecorder(r *Recorder) {
	c.mu.Lock()
	c.recorder = r
	c.mu.Unlock()
}

// DeviceName returns the name of the capture device.
func (c *Capture) DeviceName() string {
	return c.device.Name
}

// Start opens and starts the input stream.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return fmt.Errorf("capture: already started")
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: config.DefaultChannels,
			Device:   c.device,
			Latency:  c.latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: c.framesPerBuffer,
		SampleRate:      c.sampleRate,
	}

	stream, err := portaudio.OpenStream(params, c.processInputStream)
	if err != nil {
		return fmt.Errorf("capture: failed to open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("capture: failed to start stream: %w", err)
	}
	c.stream = stream
	return nil
}

// Stop stops and closes the input stream. Safe to call when not started.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return nil
	}
	if err := c.stream.Stop(); err != nil {
		return err
	}
	if err := c.stream.Close(); err != nil {
		return err
	}
	c.stream = nil
	return nil
}

// processInputStream is the PortAudio callback. PortAudio reuses in after
// the callback returns, so the samples are copied before being queued.
func (c *Capture) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	chunk := make([]float32, len(in))
	copy(chunk, in)

	if r := c.recorder; r != nil && r.IsRecording() {
		r.Write(chunk)
	}
	c.queue.Offer(chunk)
}
