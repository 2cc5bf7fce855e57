// SPDX-License-Identifier: MIT
package listener

import (
	"fmt"

	"pitchscope/internal/analysis"
	"pitchscope/pkg/bitint"
)

const (
	DefaultBufferSize    = 32768 // Samples kept in the ring buffer.
	DefaultFFTSize       = 32768 // Samples per analysis window.
	DefaultMinFrequency  = 20.0  // Hz
	DefaultGateThreshold = 0.001 // ~0.1% of full scale
)

// Options configures a Listener. Zero values select the defaults.
type Options struct {
	BufferSize    int                 // Ring capacity, power of two.
	WindowSize    int                 // Transform size, power of two <= BufferSize.
	HopSize       int                 // New samples between passes; defaults to WindowSize.
	Window        analysis.WindowFunc // Taper; Rectangular by default.
	Transform     string              // "gonum" (default) or "godsp".
	Harmonics     int                 // Partials summed by the harmonic spectrum.
	MinFrequency  float64             // Lowest reported pitch in Hz.
	MaxFrequency  float64             // Highest reported pitch in Hz, 0 for Nyquist.
	GateThreshold float64             // 0.0-1.0 of full scale; negative passes any non-silent window.
	Interpolate   bool                // Parabolic sub-bin refinement of peaks.
}

// DefaultOptions returns the options used for a zero Options value.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.BufferSize == 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.WindowSize == 0 {
		o.WindowSize = min(DefaultFFTSize, o.BufferSize)
	}
	if o.HopSize == 0 {
		o.HopSize = o.WindowSize
	}
	if o.Transform == "" {
		o.Transform = analysis.TransformGonum
	}
	if o.Harmonics == 0 {
		o.Harmonics = analysis.DefaultHarmonics
	}
	if o.MinFrequency == 0 {
		o.MinFrequency = DefaultMinFrequency
	}
	if o.GateThreshold == 0 {
		o.GateThreshold = DefaultGateThreshold
	}
	return o
}

func (o Options) validate() error {
	if !bitint.IsPowerOfTwo(o.BufferSize) {
		return fmt.Errorf("buffer size must be a power of 2, got %d (try %d)", o.BufferSize, bitint.NextPowerOfTwo(o.BufferSize))
	}
	if !bitint.IsPowerOfTwo(o.WindowSize) || o.WindowSize < 2 {
		return fmt.Errorf("window size must be a power of 2, got %d (try %d)", o.WindowSize, bitint.NextPowerOfTwo(o.WindowSize))
	}
	if o.WindowSize > o.BufferSize {
		return fmt.Errorf("window size %d exceeds buffer size %d", o.WindowSize, o.BufferSize)
	}
	if o.HopSize < 1 || o.HopSize > o.BufferSize {
		return fmt.Errorf("hop size must be between 1 and %d, got %d", o.BufferSize, o.HopSize)
	}
	if o.Harmonics < 1 {
		return fmt.Errorf("harmonics must be positive, got %d", o.Harmonics)
	}
	if o.MinFrequency < 0 || o.MaxFrequency < 0 {
		return fmt.Errorf("frequency range must be non-negative, got %.1f-%.1f Hz", o.MinFrequency, o.MaxFrequency)
	}
	if o.MaxFrequency > 0 && o.MaxFrequency <= o.MinFrequency {
		return fmt.Errorf("max frequency %.1f Hz must exceed min frequency %.1f Hz", o.MaxFrequency, o.MinFrequency)
	}
	if o.GateThreshold > 1 {
		return fmt.Errorf("gate threshold must be at most 1.0, got %f", o.GateThreshold)
	}
	return nil
}
