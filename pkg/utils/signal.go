// SPDX-License-Identifier: MIT
//
// Package utils generates deterministic float32 test signals.
package utils

import "math"

// GenerateSineWave returns size samples of a sine at frequency Hz with the
// given peak amplitude.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(amplitude * math.Sin(2*math.Pi*frequency*t))
	}
	return buffer
}

// GenerateComplexWave returns a 440Hz fundamental with two harmonics,
// scaled to 0.9 of full scale.
func GenerateComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// GenerateNoise returns uniform noise in [-amplitude, amplitude] from a
// fixed linear congruential sequence, so runs are reproducible.
func GenerateNoise(size int, amplitude float64) []float32 {
	buffer := make([]float32, size)
	state := uint32(1)
	for i := range buffer {
		state = state*1664525 + 1013904223
		u := float64(state)/math.MaxUint32*2 - 1
		buffer[i] = float32(u * amplitude)
	}
	return buffer
}
