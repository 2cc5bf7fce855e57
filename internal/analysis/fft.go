// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"

	"pitchscope/pkg/bitint"
)

// Epsilon is added to every magnitude before the decibel conversion so an
// empty bin maps to -200 dB instead of -Inf.
const Epsilon = 1e-10

// Normalization factor for int16 to float64 range [-1.0, 1.0).
const normFactor = 1.0 / 32768.0

// ErrInvalidWindowSize is returned when a window does not match the size the
// Transformer was built for.
var ErrInvalidWindowSize = errors.New("invalid analysis window size")

// Spectrum holds one decibel value per frequency bin. Bin i represents
// i*sampleRate/N Hz, where N is the transform size.
type Spectrum []float64

// Pre-allocated buffers for one transform pass.
type fftWorkspace struct {
	input  []float64    // Normalized, windowed samples.
	coeffs []complex128 // N/2+1 transform coefficients.
	window []float64    // Window coefficients, nil for Rectangular.
}

// Transformer converts a fixed-size window of int16 samples into a decibel
// magnitude spectrum of N/2 bins. It reuses its workspace between calls and
// is not safe for concurrent use.
type Transformer struct {
	transform  Transform
	size       int
	windowType WindowFunc
	scale      float64 // Amplitude correction: 2 / sum(window).
	workspace  fftWorkspace
}

// NewTransformer creates a Transformer for size-point windows. The size must
// be a power of two and equal to transform.Len().
func NewTransformer(size int, windowType WindowFunc, transform Transform) (*Transformer, error) {
	if !bitint.IsPowerOfTwo(size) || size < 2 {
		return nil, fmt.Errorf("%w: size must be a power of 2, got %d", ErrInvalidWindowSize, size)
	}
	if transform == nil {
		transform = NewGonumTransform(size)
	}
	if transform.Len() != size {
		return nil, fmt.Errorf("%w: transform length %d does not match %d", ErrInvalidWindowSize, transform.Len(), size)
	}

	coeffs, err := windowType.coefficients(size)
	if err != nil {
		return nil, err
	}

	// A full-scale sinusoid centred on a bin reads 0 dB whatever the window:
	// the one-sided amplitude is 2*|X|/sum(w).
	gain := float64(size)
	if coeffs != nil {
		gain = floats.Sum(coeffs)
	}

	return &Transformer{
		transform:  transform,
		size:       size,
		windowType: windowType,
		scale:      2 / gain,
		workspace: fftWorkspace{
			input:  make([]float64, size),
			coeffs: make([]complex128, size/2+1),
			window: coeffs,
		},
	}, nil
}

// Size returns the number of samples per analysis window.
func (t *Transformer) Size() int { return t.size }

// Bins returns the number of spectrum values produced per window.
func (t *Transformer) Bins() int { return t.size / 2 }

// Window returns the configured window function.
func (t *Transformer) Window() WindowFunc { return t.windowType }

// Spectrum transforms window into dst and returns it. dst is reallocated if
// its length is not Bins(). No allocation occurs when dst has the right
// length and the gonum backend is used.
func (t *Transformer) Spectrum(window []int16, dst Spectrum) (Spectrum, error) {
	if len(window) != t.size {
		return dst, fmt.Errorf("%w: got %d samples, want %d", ErrInvalidWindowSize, len(window), t.size)
	}
	if len(dst) != t.Bins() {
		dst = make(Spectrum, t.Bins())
	}

	in := t.workspace.input
	if w := t.workspace.window; w != nil {
		for i, s := range window {
			in[i] = float64(s) * normFactor * w[i]
		}
	} else {
		for i, s := range window {
			in[i] = float64(s) * normFactor
		}
	}

	coeffs := t.transform.Coefficients(t.workspace.coeffs, in)

	// The Nyquist coefficient is dropped; bins 0..N/2-1 are kept, DC included.
	for i := range dst {
		dst[i] = 20 * math.Log10(cmplx.Abs(coeffs[i])*t.scale+Epsilon)
	}
	return dst, nil
}
