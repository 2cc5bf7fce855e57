// SPDX-License-Identifier: MIT

// Package level holds the most recent power reading delivered by the capture
// source. The reading is computed outside the core; the adapter only stores
// and publishes it.
package level

import (
	"math"
	"sync/atomic"
)

// MinPowerDB is the floor reported before any reading arrives and after a
// reset. It matches the -160 dB floor of common hardware meters.
const MinPowerDB float32 = -160

// Snapshot is one level reading in decibels relative to full scale.
type Snapshot struct {
	AveragePowerDB float32 `json:"average_power_db" yaml:"average_power_db"`
	PeakPowerDB    float32 `json:"peak_power_db" yaml:"peak_power_db"`
}

// Floor is the snapshot reported when nothing has been measured.
var Floor = Snapshot{AveragePowerDB: MinPowerDB, PeakPowerDB: MinPowerDB}

// Adapter stores the latest Snapshot. Update and Load may be called from
// any goroutine; both fields are published together in one 64-bit word so a
// reader never sees the average of one reading with the peak of another.
type Adapter struct {
	packed atomic.Uint64
}

// NewAdapter returns an adapter holding Floor.
func NewAdapter() *Adapter {
	a := &Adapter{}
	a.Reset()
	return a
}

// Update overwrites the stored reading. NaN values are replaced by the
// floor; readings are otherwise stored as delivered.
func (a *Adapter) Update(averagePowerDB, peakPowerDB float32) {
	a.packed.Store(pack(sanitize(averagePowerDB), sanitize(peakPowerDB)))
}

// Load returns the latest reading.
func (a *Adapter) Load() Snapshot {
	v := a.packed.Load()
	return Snapshot{
		AveragePowerDB: math.Float32frombits(uint32(v >> 32)),
		PeakPowerDB:    math.Float32frombits(uint32(v)),
	}
}

// Reset restores Floor.
func (a *Adapter) Reset() {
	a.packed.Store(pack(MinPowerDB, MinPowerDB))
}

func pack(avg, peak float32) uint64 {
	return uint64(math.Float32bits(avg))<<32 | uint64(math.Float32bits(peak))
}

func sanitize(v float32) float32 {
	if v != v {
		return MinPowerDB
	}
	return v
}
