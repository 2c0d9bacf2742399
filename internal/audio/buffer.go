// SPDX-License-Identifier: MIT
package audio

import (
	"sync"
)

// Buffer accumulates one session's raw audio bytes until a window is ready.
// Bytes are kept in arrival order and only Drain (or Discard when the
// session ends) clears them, so a window is never processed twice.
type Buffer struct {
	mu        sync.Mutex
	data      []byte
	threshold int
}

// NewBuffer creates a buffer that reports ready at threshold bytes.
// threshold must be positive; it is validated with the configuration.
func NewBuffer(threshold int) *Buffer {
	if threshold < 0 {
		threshold = 0
	}
	return &Buffer{
		data:      make([]byte, 0, threshold),
		threshold: threshold,
	}
}

// Append copies chunk onto the end of the buffer. There is no upper bound.
func (b *Buffer) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	b.mu.Lock()
	b.data = append(b.data, chunk...)
	b.mu.Unlock()
}

// IsReady reports whether the buffered length has reached the threshold.
func (b *Buffer) IsReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data) >= b.threshold
}

// Drain returns every buffered byte and resets the buffer in the same
// critical section. Draining an empty buffer returns an empty slice.
func (b *Buffer) Drain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.data) == 0 {
		return []byte{}
	}
	window := b.data
	b.data = make([]byte, 0, b.threshold)
	return window
}

// Discard drops the partial window and returns how many bytes were lost.
func (b *Buffer) Discard() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.data)
	b.data = nil
	return n
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Threshold returns the ready threshold in bytes.
func (b *Buffer) Threshold() int {
	return b.threshold
}
