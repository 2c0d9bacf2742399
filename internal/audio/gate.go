// SPDX-License-Identifier: MIT
package audio

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Gate drops windows that are too quiet to be worth transcribing.
// The threshold is a peak amplitude in the range 0.0-1.0 where 0 means
// the gate is always open.
type Gate struct {
	threshold float64
}

// NewGate creates a gate with the threshold clamped to 0.0-1.0.
func NewGate(threshold float64) *Gate {
	g := &Gate{}
	g.SetThreshold(threshold)
	return g
}

// SetThreshold adjusts the gate threshold, clamping it to 0.0-1.0.
func (g *Gate) SetThreshold(threshold float64) {
	if threshold < 0.0 {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}
	g.threshold = threshold
}

// Threshold returns the current threshold.
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Open reports whether the window passes the gate.
func (g *Gate) Open(samples []float32) bool {
	if g == nil || g.threshold == 0 {
		return true
	}
	return Peak(samples) >= g.threshold
}

// Peak returns the maximum absolute sample value.
func Peak(samples []float32) float64 {
	return floats.Norm(toFloat64(samples), math.Inf(1))
}

// RMS returns the root-mean-square level of the samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	return floats.Norm(toFloat64(samples), 2) / math.Sqrt(float64(len(samples)))
}

func toFloat64(samples []float32) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s)
	}
	return out
}
