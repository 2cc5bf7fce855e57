// SPDX-License-Identifier: MIT
package capture

import (
	"context"
	"fmt"
	"time"

	"pitchscope/internal/log"
	"pitchscope/pkg/signal"
)

// ToneConfig describes a synthetic sine source.
type ToneConfig struct {
	Frequency  float64       // Hz
	Amplitude  float64       // 0-1 of full scale
	SampleRate float64       // Hz
	BlockSize  int           // Frames per block
	Realtime   bool          // Pace blocks at SampleRate
	Duration   time.Duration // Stop after this much audio, 0 to run until cancelled
	Harmonics  []float64     // Optional amplitudes of partials 2, 3, ...
}

// ToneSource generates a phase-continuous tone.
type ToneSource struct {
	cfg      ToneConfig
	partials []signal.Partial
}

// NewToneSource validates cfg and returns a tone source.
func NewToneSource(cfg ToneConfig) (*ToneSource, error) {
	if cfg.SampleRate <= 0 || cfg.BlockSize < 1 {
		return nil, fmt.Errorf("tone needs a positive sample rate and block size, got %.1f Hz / %d", cfg.SampleRate, cfg.BlockSize)
	}
	if cfg.Frequency <= 0 || cfg.Frequency >= cfg.SampleRate/2 {
		return nil, fmt.Errorf("tone frequency %.1f Hz outside (0, %.1f)", cfg.Frequency, cfg.SampleRate/2)
	}

	partials := []signal.Partial{{Frequency: cfg.Frequency, Amplitude: cfg.Amplitude}}
	for k, a := range cfg.Harmonics {
		partials = append(partials, signal.Partial{Frequency: cfg.Frequency * float64(k+2), Amplitude: a})
	}
	return &ToneSource{cfg: cfg, partials: partials}, nil
}

// Run delivers blocks until ctx is cancelled or Duration has been produced.
func (s *ToneSource) Run(ctx context.Context, sink Sink) error {
	block := make([]int16, s.cfg.BlockSize)
	var meter Meter

	limit := int64(-1)
	if s.cfg.Duration > 0 {
		limit = int64(s.cfg.Duration.Seconds() * s.cfg.SampleRate)
	}

	log.Infof("Capture: Generating %.1f Hz tone at %.0f Hz", s.cfg.Frequency, s.cfg.SampleRate)

	start := time.Now()
	var sent int64
	for ctx.Err() == nil && (limit < 0 || sent < limit) {
		n := len(block)
		if limit >= 0 {
			n = int(min(int64(n), limit-sent))
		}
		out := block[:n]
		signal.MixInto(out, sent, s.cfg.SampleRate, s.partials...)

		avg, peak := meter.Measure(out)
		sink.UpdateLevels(avg, peak)
		sink.Ingest(out, s.cfg.SampleRate)
		sent += int64(n)

		if s.cfg.Realtime && !pace(ctx, start, sent, s.cfg.SampleRate) {
			break
		}
	}
	return nil
}

// Close is a no-op.
func (s *ToneSource) Close() error { return nil }
