// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrEmptyRange is returned by FindPeak when no bin lies inside the search
// range.
var ErrEmptyRange = errors.New("empty peak search range")

// FindPeak returns the bin with the largest value in s over [lo, hi). The
// range is clamped to [1, len(s)) so the DC bin is never reported. On exact
// ties the lowest bin wins.
func FindPeak(s Spectrum, lo, hi int) (int, float64, error) {
	lo = max(lo, 1)
	hi = min(hi, len(s))
	if lo >= hi {
		return 0, 0, fmt.Errorf("%w: [%d, %d)", ErrEmptyRange, lo, hi)
	}
	// MaxIdx returns the first index of the maximum.
	idx := lo + floats.MaxIdx(s[lo:hi])
	return idx, s[idx], nil
}

// DefaultCandidateMargin is how far, in dB, a raw spectral peak may sit
// below the strongest one and still be considered as a fundamental.
const DefaultCandidateMargin = 30.0

// FindHarmonicPeak returns the bin over [lo, hi) with the largest harmonic
// value among the candidate fundamentals: local maxima of raw whose level is
// at least floorDB. Bins between partials only hold leakage and are never
// candidates, so a pure tone cannot resolve to one of its subharmonics. The
// range is clamped like FindPeak and the lowest bin wins exact ties.
// ErrEmptyRange is returned when no bin qualifies.
func FindHarmonicPeak(harmonic, raw Spectrum, lo, hi int, floorDB float64) (int, float64, error) {
	lo = max(lo, 1)
	hi = min(hi, len(harmonic), len(raw))
	best := -1
	for i := lo; i < hi; i++ {
		if raw[i] < floorDB || raw[i] < raw[i-1] || (i+1 < len(raw) && raw[i] <= raw[i+1]) {
			continue
		}
		if best < 0 || harmonic[i] > harmonic[best] {
			best = i
		}
	}
	if best < 0 {
		return 0, 0, fmt.Errorf("%w: no peak above %.1f dB in [%d, %d)", ErrEmptyRange, floorDB, lo, hi)
	}
	return best, harmonic[best], nil
}

// BinFrequency returns the centre frequency in Hz of bin for a transform of
// size points at sampleRate.
func BinFrequency(bin int, sampleRate float64, size int) float64 {
	if size <= 0 {
		return 0
	}
	return float64(bin) * sampleRate / float64(size)
}

// FrequencyBin returns the bin nearest to hz for a transform of size points
// at sampleRate.
func FrequencyBin(hz, sampleRate float64, size int) int {
	if sampleRate <= 0 {
		return 0
	}
	return int(math.Round(hz * float64(size) / sampleRate))
}

// Interpolate refines a peak at bin by fitting a parabola through it and its
// two neighbours. It returns the fractional bin position, or bin itself at
// the edges of s or when the three points are collinear.
func Interpolate(s Spectrum, bin int) float64 {
	if bin <= 0 || bin >= len(s)-1 {
		return float64(bin)
	}
	a, b, c := s[bin-1], s[bin], s[bin+1]
	den := a - 2*b + c
	if den == 0 {
		return float64(bin)
	}
	delta := 0.5 * (a - c) / den
	delta = math.Max(-0.5, math.Min(0.5, delta))
	return float64(bin) + delta
}
