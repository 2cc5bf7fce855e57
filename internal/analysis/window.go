// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the taper applied to the analysis window before the
// transform.
type WindowFunc int

// Available window functions. Rectangular applies no taper.
const (
	Rectangular WindowFunc = iota
	BartlettHann
	Blackman
	BlackmanHarris
	BlackmanNuttall
	FlatTop
	Hann
	Hamming
	Lanczos
	Nuttall
)

var windowNames = map[WindowFunc]string{
	Rectangular:     "rectangular",
	BartlettHann:    "bartletthann",
	Blackman:        "blackman",
	BlackmanHarris:  "blackmanharris",
	BlackmanNuttall: "blackmannuttall",
	FlatTop:         "flattop",
	Hann:            "hann",
	Hamming:         "hamming",
	Lanczos:         "lanczos",
	Nuttall:         "nuttall",
}

func (w WindowFunc) String() string {
	if name, ok := windowNames[w]; ok {
		return name
	}
	return fmt.Sprintf("WindowFunc(%d)", int(w))
}

// ParseWindowFunc converts a name (case-insensitive) to a WindowFunc. An empty
// name and "none" select Rectangular. Unknown names return Rectangular and
// an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "", "none":
		return Rectangular, nil
	case "hanning":
		return Hann, nil
	default:
		for w, wn := range windowNames {
			if wn == n {
				return w, nil
			}
		}
		return Rectangular, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// coefficients returns size window coefficients, or nil for Rectangular so
// the transform can skip the multiply.
func (w WindowFunc) coefficients(size int) ([]float64, error) {
	if w == Rectangular {
		return nil, nil
	}

	// The gonum window functions scale their argument in place, so start
	// from ones to obtain the raw coefficients.
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1.0
	}

	switch w {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanHarris:
		window.BlackmanHarris(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case FlatTop:
		window.FlatTop(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		return nil, fmt.Errorf("unsupported window function %v", w)
	}
	return coeffs, nil
}
