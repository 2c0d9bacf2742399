// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavBitDepth    = 16
	wavChannels    = 1
	wavFormatPCM   = 1
	wavHeaderBytes = 44
)

// EncodeWAV packs float samples as a mono 16-bit PCM WAV file held in memory.
func EncodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyInput
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	out := &memWriteSeeker{buf: make([]byte, 0, wavHeaderBytes+len(samples)*2)}
	enc := wav.NewEncoder(out, sampleRate, wavBitDepth, wavChannels, wavFormatPCM)

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: wavChannels,
			SampleRate:  sampleRate,
		},
		Data:           FloatsToPCM16(samples),
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write WAV samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize WAV header: %w", err)
	}
	return out.Bytes(), nil
}

// DecodeWAV reads a mono 16-bit WAV file back into float samples and its
// sample rate.
func DecodeWAV(data []byte) ([]float32, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode WAV: %w", err)
	}
	if dec.BitDepth != wavBitDepth {
		return nil, 0, fmt.Errorf("unsupported bit depth: %d", dec.BitDepth)
	}
	if dec.NumChans != wavChannels {
		return nil, 0, fmt.Errorf("unsupported channel count: %d", dec.NumChans)
	}

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = PCM16ToFloat(int16(v))
	}
	return samples, int(dec.SampleRate), nil
}

// memWriteSeeker is the in-memory io.WriteSeeker the WAV encoder needs to
// patch its size fields after the samples are written.
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		if end > cap(m.buf) {
			grown := make([]byte, len(m.buf), end*2)
			copy(grown, m.buf)
			m.buf = grown
		}
		m.buf = m.buf[:end]
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(m.pos)
	case io.SeekEnd:
		base = int64(len(m.buf))
	default:
		return 0, errors.New("memWriteSeeker: invalid whence")
	}
	next := base + offset
	if next < 0 {
		return 0, errors.New("memWriteSeeker: negative position")
	}
	m.pos = int(next)
	return next, nil
}

// Bytes returns the written file.
func (m *memWriteSeeker) Bytes() []byte {
	return m.buf
}

var _ io.WriteSeeker = (*memWriteSeeker)(nil)
