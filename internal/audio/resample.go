// SPDX-License-Identifier: MIT
package audio

import (
	"gonum.org/v1/gonum/interp"
)

// Resample converts one complete buffer from fromRate to toRate by linear
// interpolation. It is meant for the small mismatches between a device's
// native rate and the stream rate, not for high-quality conversion.
// Equal or invalid rates return a copy.
func Resample(samples []float32, fromRate, toRate float64) []float32 {
	return NewResampler(fromRate, toRate).Process(samples)
}

// Resampler converts a chunked stream from one rate to another. Unlike
// Resample it carries the fractional read position and the previous
// chunk's last sample, so output length does not drift and chunk edges
// are interpolated across.
type Resampler struct {
	fromRate float64
	toRate   float64
	step     float64

	// pos is the next output position in input samples, relative to the
	// start of the next chunk. It lies in [-1, 0) once a tail is held.
	pos     float64
	tail    float64
	hasTail bool
}

// NewResampler creates a resampler from fromRate to toRate.
func NewResampler(fromRate, toRate float64) *Resampler {
	return &Resampler{fromRate: fromRate, toRate: toRate, step: fromRate / toRate}
}

// Process resamples the next chunk of the stream.
func (r *Resampler) Process(chunk []float32) []float32 {
	if r.fromRate <= 0 || r.toRate <= 0 || r.fromRate == r.toRate {
		out := make([]float32, len(chunk))
		copy(out, chunk)
		return out
	}
	if len(chunk) == 0 {
		return []float32{}
	}

	// Knots at -1 (previous tail) and 0..n-1 (this chunk).
	offset := 0
	if r.hasTail {
		offset = 1
	}
	xs := make([]float64, len(chunk)+offset)
	ys := make([]float64, len(chunk)+offset)
	if r.hasTail {
		xs[0], ys[0] = -1, r.tail
	}
	for i, s := range chunk {
		xs[i+offset] = float64(i)
		ys[i+offset] = float64(s)
	}

	last := float64(len(chunk) - 1)
	out := make([]float32, 0, int(float64(len(chunk))/r.step)+1)

	if len(xs) < 2 {
		// A lone first sample: emit it when due and carry it as the tail.
		for ; r.pos <= last; r.pos += r.step {
			out = append(out, chunk[0])
		}
	} else {
		var pl interp.PiecewiseLinear
		if err := pl.Fit(xs, ys); err != nil {
			return out
		}
		for ; r.pos <= last; r.pos += r.step {
			out = append(out, float32(pl.Predict(r.pos)))
		}
	}

	r.pos -= float64(len(chunk))
	r.tail = float64(chunk[len(chunk)-1])
	r.hasTail = true
	return out
}
