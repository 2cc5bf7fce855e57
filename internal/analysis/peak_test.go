// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
	"testing"

	"pitchscope/pkg/signal"
)

func TestHarmonicSuppressesOctaveError(t *testing.T) {
	p := mustTransformer(t, testFFTSize, Rectangular, nil)
	raw := mustSpectrum(t, p, signal.Mix(testFFTSize, testSampleRate,
		signal.Partial{Frequency: 440, Amplitude: 0.5},
		signal.Partial{Frequency: 880, Amplitude: 0.3},
	))
	h := Harmonic(raw, DefaultHarmonics, 1, nil)

	lo := FrequencyBin(20, testSampleRate, testFFTSize)
	hi := HarmonicLimit(len(h), DefaultHarmonics)
	_, rawDB, err := FindPeak(raw, lo, len(raw))
	if err != nil {
		t.Fatalf("FindPeak: %v", err)
	}
	bin, _, err := FindHarmonicPeak(h, raw, lo, hi, rawDB-DefaultCandidateMargin)
	if err != nil {
		t.Fatalf("FindHarmonicPeak: %v", err)
	}
	got := BinFrequency(bin, testSampleRate, testFFTSize)
	if math.Abs(got-440) > binWidth {
		t.Errorf("harmonic peak = %.3f Hz, want 440 (not 880 or a subharmonic)", got)
	}
}

func TestHarmonicPeakFindsFundamental(t *testing.T) {
	tests := []struct {
		name    string
		samples []int16
		want    float64
	}{
		{"sine 100 Hz", signal.Sine(testFFTSize, testSampleRate, 100, 0.5), 100},
		{"sine C4", signal.Sine(testFFTSize, testSampleRate, 261.63, 0.5), 261.63},
		{"sine A4", signal.Sine(testFFTSize, testSampleRate, 440, 0.5), 440},
		{"sine 3 kHz", signal.Sine(testFFTSize, testSampleRate, 3000, 0.5), 3000},
		{"harmonic A3", signal.Harmonic(testFFTSize, testSampleRate, 220, 0.4, 0.25, 0.15, 0.1), 220},
		{"weak fundamental G3", signal.Harmonic(testFFTSize, testSampleRate, 196, 0.1, 0.4, 0.25, 0.15), 196},
	}
	windows := []struct {
		name string
		fn   WindowFunc
	}{
		{"rectangular", Rectangular},
		{"hann", Hann},
	}
	lo := FrequencyBin(20, testSampleRate, testFFTSize)
	for _, w := range windows {
		p := mustTransformer(t, testFFTSize, w.fn, nil)
		for _, tt := range tests {
			raw := mustSpectrum(t, p, tt.samples)
			h := Harmonic(raw, DefaultHarmonics, 1, nil)
			_, rawDB, err := FindPeak(raw, lo, len(raw))
			if err != nil {
				t.Fatalf("%s/%s: FindPeak: %v", w.name, tt.name, err)
			}
			bin, _, err := FindHarmonicPeak(h, raw, lo, HarmonicLimit(len(h), DefaultHarmonics), rawDB-DefaultCandidateMargin)
			if err != nil {
				t.Fatalf("%s/%s: FindHarmonicPeak: %v", w.name, tt.name, err)
			}
			if got := BinFrequency(bin, testSampleRate, testFFTSize); math.Abs(got-tt.want) > binWidth {
				t.Errorf("%s/%s: harmonic peak = %.2f Hz, want %.2f +/- %.2f", w.name, tt.name, got, tt.want, binWidth)
			}
		}
	}
}

func TestFindHarmonicPeakCandidates(t *testing.T) {
	// Bin 2 holds the most harmonic energy but is not a peak of raw, bin 6
	// is a peak below the floor.
	raw := Spectrum{0, -10, -5, -1, -40, -30, -20, -30}
	h := Spectrum{0, 5, 50, 10, 0, 0, 40, 0}

	bin, db, err := FindHarmonicPeak(h, raw, 0, len(raw), -10)
	if err != nil {
		t.Fatalf("FindHarmonicPeak: %v", err)
	}
	if bin != 3 || db != 10 {
		t.Errorf("FindHarmonicPeak = (%d, %v), want (3, 10)", bin, db)
	}

	bin, _, err = FindHarmonicPeak(h, raw, 0, len(raw), -25)
	if err != nil || bin != 6 {
		t.Errorf("FindHarmonicPeak with a lower floor = (%d, %v), want bin 6", bin, err)
	}

	if _, _, err := FindHarmonicPeak(h, raw, 4, len(raw), -10); !errors.Is(err, ErrEmptyRange) {
		t.Errorf("FindHarmonicPeak above every candidate error = %v, want ErrEmptyRange", err)
	}
	if _, _, err := FindHarmonicPeak(h, raw, 5, 5, -100); !errors.Is(err, ErrEmptyRange) {
		t.Errorf("FindHarmonicPeak on an empty range error = %v, want ErrEmptyRange", err)
	}
}

func TestHarmonicSkipsOutOfRange(t *testing.T) {
	raw := Spectrum{100, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	h := Harmonic(raw, 4, 1, nil)

	tests := []struct {
		bin  int
		want float64
	}{
		{0, 100},         // below minBin, copied
		{1, 1 + 2 + 3 + 4},
		{2, 2 + 4 + 6 + 8},
		{3, 3 + 6 + 9},   // 12 is out of range
		{5, 5},           // only the fundamental fits
		{9, 9},
	}
	for _, tt := range tests {
		if h[tt.bin] != tt.want {
			t.Errorf("Harmonic()[%d] = %v, want %v", tt.bin, h[tt.bin], tt.want)
		}
	}
}

func TestHarmonicReusesDestination(t *testing.T) {
	raw := Spectrum{0, 1, 2, 3}
	dst := make(Spectrum, len(raw))
	out := Harmonic(raw, 2, 1, dst)
	if &out[0] != &dst[0] {
		t.Error("Harmonic reallocated a destination of the right length")
	}
}

func TestHarmonicLimit(t *testing.T) {
	tests := []struct {
		length, harmonics, want int
	}{
		{16384, 4, 4096},
		{10, 4, 3},
		{10, 1, 10},
		{10, 0, 10},
		{0, 4, 0},
	}
	for _, tt := range tests {
		if got := HarmonicLimit(tt.length, tt.harmonics); got != tt.want {
			t.Errorf("HarmonicLimit(%d, %d) = %d, want %d", tt.length, tt.harmonics, got, tt.want)
		}
	}
}

func TestFindPeakTieBreakLowestBin(t *testing.T) {
	s := Spectrum{100, 1, 5, 5, 2, 5}
	bin, db, err := FindPeak(s, 0, len(s))
	if err != nil {
		t.Fatalf("FindPeak: %v", err)
	}
	if bin != 2 || db != 5 {
		t.Errorf("FindPeak = (%d, %v), want (2, 5); DC must be skipped and the first maximum wins", bin, db)
	}
}

func TestFindPeakEmptyRange(t *testing.T) {
	s := Spectrum{0, 1, 2}
	for _, r := range [][2]int{{2, 2}, {3, 10}, {0, 1}} {
		if _, _, err := FindPeak(s, r[0], r[1]); !errors.Is(err, ErrEmptyRange) {
			t.Errorf("FindPeak(%v) error = %v, want ErrEmptyRange", r, err)
		}
	}
}

func TestBinFrequencyRoundTrip(t *testing.T) {
	for _, bin := range []int{1, 327, 1000, 16383} {
		hz := BinFrequency(bin, testSampleRate, testFFTSize)
		if got := FrequencyBin(hz, testSampleRate, testFFTSize); got != bin {
			t.Errorf("FrequencyBin(BinFrequency(%d)) = %d", bin, got)
		}
	}
	if BinFrequency(10, testSampleRate, 0) != 0 || FrequencyBin(10, 0, 1024) != 0 {
		t.Error("degenerate sizes should map to zero")
	}
}

func TestInterpolateMovesTowardTrueFrequency(t *testing.T) {
	p := mustTransformer(t, testFFTSize, Hann, nil)
	s := mustSpectrum(t, p, signal.Sine(testFFTSize, testSampleRate, 440, 0.5))
	bin, _, _ := FindPeak(s, 1, len(s))

	rawErr := math.Abs(BinFrequency(bin, testSampleRate, testFFTSize) - 440)
	pos := Interpolate(s, bin)
	fineErr := math.Abs(pos*testSampleRate/testFFTSize - 440)
	if fineErr >= rawErr {
		t.Errorf("interpolated error %.4f Hz not below raw error %.4f Hz", fineErr, rawErr)
	}
}

func TestInterpolateEdges(t *testing.T) {
	s := Spectrum{0, 3, 3, 3, 1}
	if got := Interpolate(s, 0); got != 0 {
		t.Errorf("Interpolate at DC = %v, want 0", got)
	}
	if got := Interpolate(s, 4); got != 4 {
		t.Errorf("Interpolate at last bin = %v, want 4", got)
	}
	if got := Interpolate(s, 2); got != 2 {
		t.Errorf("Interpolate on a flat top = %v, want 2", got)
	}
	// Symmetric neighbours leave the peak in place.
	if got := Interpolate(Spectrum{0, 1, 2, 1}, 2); got != 2 {
		t.Errorf("Interpolate symmetric = %v, want 2", got)
	}
}

func TestPeaks(t *testing.T) {
	s := Spectrum{9, 1, 5, 1, 7, 1, 3, 1}
	got := Peaks(s, 2)
	if len(got) != 2 || got[0] != 4 || got[1] != 2 {
		t.Errorf("Peaks(s, 2) = %v, want [4 2]", got)
	}
	if Peaks(s, 0) != nil {
		t.Error("Peaks(s, 0) should be nil")
	}
}
