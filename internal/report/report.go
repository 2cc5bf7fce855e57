// SPDX-License-Identifier: MIT

// Package report turns listener results into periodic readings and hands
// them to a Transport.
package report

import (
	"errors"
	"time"

	"pitchscope/internal/level"
	"pitchscope/internal/listener"
)

// Source is the query surface a Publisher polls. *listener.Listener
// implements it.
type Source interface {
	State() listener.State
	Pitch() (listener.Estimate, error)
	Levels() level.Snapshot
}

var _ Source = (*listener.Listener)(nil)

// Transport defines a generic interface for delivering readings.
// Implementations should be thread-safe.
type Transport interface {
	Send(r Reading) error
	Close() error
}

// Status describes whether a reading carries a pitch.
type Status string

const (
	StatusPitch    Status = "pitch"
	StatusNoSignal Status = "no_signal"
	StatusNotReady Status = "not_ready"
)

// Reading is one snapshot of the listener.
type Reading struct {
	Sequence       uint32    `json:"sequence"`
	Time           time.Time `json:"time"`
	State          string    `json:"state"`
	Status         Status    `json:"status"`
	Frequency      float64   `json:"frequency"`
	RawFrequency   float64   `json:"raw_frequency"`
	Note           Note      `json:"note"`
	AveragePowerDB float32   `json:"average_power_db"`
	PeakPowerDB    float32   `json:"peak_power_db"`
}

// HasPitch reports whether the reading carries a frequency.
func (r Reading) HasPitch() bool {
	return r.Status == StatusPitch
}

// Snapshot reads src once.
func Snapshot(src Source, sequence uint32) Reading {
	levels := src.Levels()
	r := Reading{
		Sequence:       sequence,
		Time:           time.Now(),
		State:          src.State().String(),
		AveragePowerDB: levels.AveragePowerDB,
		PeakPowerDB:    levels.PeakPowerDB,
	}

	est, err := src.Pitch()
	switch {
	case err == nil:
		r.Status = StatusPitch
		r.Frequency = est.Frequency
		r.RawFrequency = est.RawFrequency
		r.Note, _ = NoteFor(est.Frequency)
	case errors.Is(err, listener.ErrNoSignal):
		r.Status = StatusNoSignal
	default:
		r.Status = StatusNotReady
	}
	return r
}
