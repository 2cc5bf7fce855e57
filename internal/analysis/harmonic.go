// SPDX-License-Identifier: MIT
package analysis

// DefaultHarmonics is the number of partials summed per bin, the
// fundamental included.
const DefaultHarmonics = 4

// Harmonic writes the harmonic-reinforced spectrum of raw into dst and
// returns it. For every bin i >= minBin the result is the sum of the decibel
// values at i, 2i, ..., harmonics*i. Harmonics that fall past the end of raw
// are skipped, so high bins receive fewer terms. Bins below minBin are copied
// unchanged. dst is reallocated if its length differs from raw.
//
// Summing decibels is the log-domain form of the harmonic product spectrum.
func Harmonic(raw Spectrum, harmonics, minBin int, dst Spectrum) Spectrum {
	if len(dst) != len(raw) {
		dst = make(Spectrum, len(raw))
	}
	if harmonics < 1 {
		harmonics = 1
	}
	minBin = max(minBin, 0)

	n := len(raw)
	copy(dst[:min(minBin, n)], raw)
	for i := minBin; i < n; i++ {
		if i == 0 {
			// Every multiple of DC is DC.
			dst[0] = raw[0]
			continue
		}
		sum := 0.0
		for h := 1; h <= harmonics; h++ {
			k := h * i
			if k >= n {
				break
			}
			sum += raw[k]
		}
		dst[i] = sum
	}
	return dst
}

// HarmonicLimit returns the exclusive upper bin for which all harmonics
// partials lie inside a spectrum of the given length. Peak searches over a
// harmonic spectrum stop here so every candidate is scored on the same
// number of terms.
func HarmonicLimit(length, harmonics int) int {
	if length <= 0 {
		return 0
	}
	if harmonics <= 1 {
		return length
	}
	return (length-1)/harmonics + 1
}
