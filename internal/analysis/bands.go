// SPDX-License-Identifier: MIT
package analysis

import "math"

// FrequencyBand defines the name and frequency range for an energy band.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64 // Exclusive. Zero extends the band to Nyquist.
}

// DefaultBands covers the audible range in the usual mixing regions.
var DefaultBands = []FrequencyBand{
	{Name: "sub", LowHz: 20, HighHz: 60},
	{Name: "bass", LowHz: 60, HighHz: 250},
	{Name: "lowMid", LowHz: 250, HighHz: 500},
	{Name: "mid", LowHz: 500, HighHz: 2000},
	{Name: "highMid", LowHz: 2000, HighHz: 4000},
	{Name: "treble", LowHz: 4000},
}

// BandLevel is the mean power of the bins inside one band.
type BandLevel struct {
	FrequencyBand
	PowerDB float64 // -Inf when the band holds no bins.
	Bins    int
}

// BandLevels averages the power of a decibel spectrum over each band. The
// spectrum comes from a window of size samples at sampleRate.
func BandLevels(s Spectrum, sampleRate float64, size int, bands []FrequencyBand) []BandLevel {
	levels := make([]BandLevel, len(bands))
	nyquist := sampleRate / 2
	for i, band := range bands {
		high := band.HighHz
		if high <= 0 || high > nyquist {
			high = nyquist
		}

		var energy float64
		n := 0
		for bin := 1; bin < len(s); bin++ {
			freq := BinFrequency(bin, sampleRate, size)
			if freq < band.LowHz {
				continue
			}
			if freq >= high {
				break
			}
			energy += math.Pow(10, s[bin]/10) // Sum energy (magnitude squared)
			n++
		}

		levels[i] = BandLevel{FrequencyBand: band, PowerDB: math.Inf(-1), Bins: n}
		if n > 0 {
			levels[i].PowerDB = 10 * math.Log10(energy/float64(n))
		}
	}
	return levels
}
