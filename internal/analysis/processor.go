// SPDX-License-Identifier: MIT
package analysis

// SpectrumProvider is implemented by components that publish the spectra of
// their latest analysis pass. It decouples consumers (reporting, the analyze
// command) from the component that owns the analysis state.
type SpectrumProvider interface {
	FreqDB() Spectrum         // FreqDB returns a copy of the latest raw decibel spectrum.
	FreqDBHarmonic() Spectrum // FreqDBHarmonic returns a copy of the latest harmonic spectrum.
	SampleRate() float64      // SampleRate returns the sample rate of the analysed stream (Hz).
	WindowSize() int          // WindowSize returns the number of samples per analysis window.
}

// Peaks returns up to n local maxima of s in descending order of value,
// ignoring the DC bin. It is used for diagnostics, not for pitch picking.
func Peaks(s Spectrum, n int) []int {
	if n <= 0 {
		return nil
	}
	peaks := make([]int, 0, n+1)
	for i := 1; i < len(s)-1; i++ {
		if s[i] < s[i-1] || s[i] <= s[i+1] {
			continue
		}
		// Insertion keeps the slice sorted and bounded by n.
		pos := len(peaks)
		for pos > 0 && s[peaks[pos-1]] < s[i] {
			pos--
		}
		if pos >= n {
			continue
		}
		peaks = append(peaks, 0)
		copy(peaks[pos+1:], peaks[pos:])
		peaks[pos] = i
		if len(peaks) > n {
			peaks = peaks[:n]
		}
	}
	return peaks
}
