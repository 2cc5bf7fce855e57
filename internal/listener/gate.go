// SPDX-License-Identifier: MIT
package listener

import (
	"math"
	"sync/atomic"
)

// gate decides whether an analysis window carries enough signal to report a
// pitch. It compares the window's peak absolute amplitude with a threshold.
type gate struct {
	threshold atomic.Int32 // Absolute amplitude threshold (0-32767)
}

// set stores threshold, clamped to 0.0-1.0 where 0=always open (except for
// digital silence) and 1=always closed.
func (g *gate) set(threshold float64) {
	if threshold < 0.0 || threshold != threshold {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}
	g.threshold.Store(int32(threshold * float64(math.MaxInt16)))
}

func (g *gate) get() float64 {
	return float64(g.threshold.Load()) / float64(math.MaxInt16)
}

// open reports whether the peak amplitude of window exceeds the threshold.
// Branchless abs and max keep the scan cheap over large windows.
func (g *gate) open(window []int16) bool {
	var maxAmplitude int32
	for _, s := range window {
		sample := int32(s)
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		diff := amplitude - maxAmplitude
		maxAmplitude += (diff & (diff >> 31)) ^ diff
	}
	return maxAmplitude > g.threshold.Load()
}
