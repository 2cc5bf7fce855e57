// SPDX-License-Identifier: MIT
package capture

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"pitchscope/internal/level"
)

// Meter computes block levels in dBFS. It reuses a scratch buffer and is
// not safe for concurrent use.
type Meter struct {
	scratch []float64
}

// Measure returns the RMS (average) and peak level of samples in dBFS,
// floored at level.MinPowerDB. An empty block reads as the floor.
func (m *Meter) Measure(samples []int16) (averagePowerDB, peakPowerDB float32) {
	n := len(samples)
	if n == 0 {
		return level.MinPowerDB, level.MinPowerDB
	}
	if cap(m.scratch) < n {
		m.scratch = make([]float64, n)
	}
	x := m.scratch[:n]
	for i, s := range samples {
		x[i] = float64(s) / 32768
	}

	rms := floats.Norm(x, 2) / math.Sqrt(float64(n))
	peak := math.Max(floats.Max(x), -floats.Min(x))
	return toDB(rms), toDB(peak)
}

// Measure is a convenience wrapper around a throwaway Meter.
func Measure(samples []int16) (averagePowerDB, peakPowerDB float32) {
	var m Meter
	return m.Measure(samples)
}

func toDB(amplitude float64) float32 {
	if amplitude <= 0 {
		return level.MinPowerDB
	}
	return float32(math.Max(20*math.Log10(amplitude), float64(level.MinPowerDB)))
}
