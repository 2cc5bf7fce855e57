// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Transform is a real-input discrete Fourier transform of fixed length.
// Coefficients writes the Len()/2+1 non-negative frequency coefficients of
// real into dst, allocating when dst is nil, and returns it.
type Transform interface {
	Len() int
	Coefficients(dst []complex128, real []float64) []complex128
}

// Transform backends selectable by name.
const (
	TransformGonum = "gonum"
	TransformGoDSP = "godsp"
)

// NewTransform returns the named backend sized for n points.
func NewTransform(name string, n int) (Transform, error) {
	switch strings.ToLower(name) {
	case "", TransformGonum:
		return NewGonumTransform(n), nil
	case TransformGoDSP, "go-dsp":
		return NewGoDSPTransform(n), nil
	default:
		return nil, fmt.Errorf("unknown transform backend '%s'", name)
	}
}

// GonumTransform wraps gonum's real FFT. It is allocation-free when dst is
// supplied.
type GonumTransform struct {
	fft *fourier.FFT
}

// NewGonumTransform creates a gonum transform for n points.
func NewGonumTransform(n int) *GonumTransform {
	return &GonumTransform{fft: fourier.NewFFT(n)}
}

func (g *GonumTransform) Len() int { return g.fft.Len() }

func (g *GonumTransform) Coefficients(dst []complex128, real []float64) []complex128 {
	return g.fft.Coefficients(dst, real)
}

// GoDSPTransform uses mjibson/go-dsp. It computes the full complex spectrum
// and keeps the non-negative half, so it allocates on every call.
type GoDSPTransform struct {
	n int
}

// NewGoDSPTransform creates a go-dsp transform for n points.
func NewGoDSPTransform(n int) *GoDSPTransform {
	return &GoDSPTransform{n: n}
}

func (t *GoDSPTransform) Len() int { return t.n }

func (t *GoDSPTransform) Coefficients(dst []complex128, real []float64) []complex128 {
	if len(real) != t.n {
		panic(fmt.Sprintf("analysis: go-dsp transform length mismatch %d != %d", len(real), t.n))
	}
	half := t.n/2 + 1
	if dst == nil {
		dst = make([]complex128, half)
	}
	full := fft.FFTReal(real)
	copy(dst[:half], full[:half])
	return dst
}

// Compile-time checks for interface implementations.
var (
	_ Transform = (*GonumTransform)(nil)
	_ Transform = (*GoDSPTransform)(nil)
)
