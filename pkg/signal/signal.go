// SPDX-License-Identifier: MIT

// Package signal synthesises mono 16-bit PCM test signals. It backs the tone
// capture source and the analysis tests.
package signal

import "math"

// Partial is one sinusoidal component of a generated signal. Amplitude is
// relative to full scale (1.0 = 32767).
type Partial struct {
	Frequency float64
	Amplitude float64
	Phase     float64
}

// Sine returns size samples of a single sine wave.
func Sine(size int, sampleRate, frequency, amplitude float64) []int16 {
	return Mix(size, sampleRate, Partial{Frequency: frequency, Amplitude: amplitude})
}

// Mix returns size samples of the sum of the given partials, clipped to
// the int16 range.
func Mix(size int, sampleRate float64, partials ...Partial) []int16 {
	buffer := make([]int16, size)
	MixInto(buffer, 0, sampleRate, partials...)
	return buffer
}

// MixInto writes the sum of partials into dst, starting at sample offset
// start of an endless signal. Successive calls with increasing offsets
// produce a phase-continuous stream.
func MixInto(dst []int16, start int64, sampleRate float64, partials ...Partial) {
	for i := range dst {
		tm := float64(start+int64(i)) / sampleRate
		var v float64
		for _, p := range partials {
			v += p.Amplitude * math.Sin(2*math.Pi*p.Frequency*tm+p.Phase)
		}
		dst[i] = Quantize(v)
	}
}

// Harmonic returns size samples of a fundamental plus its harmonics, with
// amplitudes[k] applied to harmonic k+1.
func Harmonic(size int, sampleRate, fundamental float64, amplitudes ...float64) []int16 {
	partials := make([]Partial, len(amplitudes))
	for k, a := range amplitudes {
		partials[k] = Partial{Frequency: fundamental * float64(k+1), Amplitude: a}
	}
	return Mix(size, sampleRate, partials...)
}

// Silence returns size zero samples.
func Silence(size int) []int16 {
	return make([]int16, size)
}

// Quantize converts a sample in [-1, 1] to int16 with clipping.
func Quantize(v float64) int16 {
	s := math.Round(v * math.MaxInt16)
	if s > math.MaxInt16 {
		return math.MaxInt16
	}
	if s < math.MinInt16 {
		return math.MinInt16
	}
	return int16(s)
}
