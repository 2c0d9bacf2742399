// SPDX-License-Identifier: MIT
/*
Package audio holds the sample-level building blocks of the relay:
- Framing between the float32 wire format and 16-bit PCM
- WAV containers for the transcription engine
- The per-session window buffer
- Client-side capture and recording

Conversion policy:
- Float samples are clamped to [-1.0, 1.0] before scaling by 32767
- Scaled values are truncated toward zero; NaN becomes 0
*/
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Float32Size is the byte width of one wire sample.
const Float32Size = 4

// PCM16Scale is the multiplier between a unit float sample and int16 PCM.
const PCM16Scale = 32767

var (
	// ErrEmptyInput is returned when there are no samples to work with.
	ErrEmptyInput = errors.New("audio: empty input")
	// ErrMisaligned is returned when a raw buffer is not a whole number of samples.
	ErrMisaligned = errors.New("audio: buffer length is not a multiple of the sample size")
)

// DecodeFloat32LE interprets raw as consecutive little-endian IEEE-754
// float32 samples.
func DecodeFloat32LE(raw []byte) ([]float32, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyInput
	}
	if len(raw)%Float32Size != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMisaligned, len(raw))
	}

	samples := make([]float32, len(raw)/Float32Size)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*Float32Size:]))
	}
	return samples, nil
}

// EncodeFloat32LE is the inverse of DecodeFloat32LE, used by the client to
// put captured samples on the wire.
func EncodeFloat32LE(samples []float32) []byte {
	raw := make([]byte, len(samples)*Float32Size)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(raw[i*Float32Size:], math.Float32bits(s))
	}
	return raw
}

// FloatToPCM16 converts one sample, clamping out-of-range input.
func FloatToPCM16(s float32) int16 {
	switch {
	case s != s: // NaN
		return 0
	case s > 1:
		s = 1
	case s < -1:
		s = -1
	}
	return int16(float64(s) * PCM16Scale)
}

// PCM16ToFloat converts one 16-bit sample back to the unit range.
func PCM16ToFloat(v int16) float32 {
	return float32(float64(v) / PCM16Scale)
}

// FloatsToPCM16 converts a slice of float samples into int values holding
// 16-bit PCM, the layout go-audio buffers use.
func FloatsToPCM16(samples []float32) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		out[i] = int(FloatToPCM16(s))
	}
	return out
}
