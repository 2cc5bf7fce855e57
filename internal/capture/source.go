// SPDX-License-Identifier: MIT

/*
Package capture delivers mono 16-bit sample blocks and level readings to a
Sink. Sources cover live PortAudio input, WAV file replay and a synthetic
tone.

Every source measures the average and peak level of each block before
handing it over, standing in for a hardware power meter. Multi-channel
input is reduced to its first channel.
*/
package capture

import (
	"context"
	"fmt"
	"time"

	"pitchscope/internal/config"
)

// Sink receives captured audio. *listener.Listener implements it.
type Sink interface {
	Ingest(samples []int16, sampleRate float64)
	UpdateLevels(averagePowerDB, peakPowerDB float32)
	Fail(err error)
}

// Source produces audio until its input ends or ctx is cancelled. Run
// reports errors to the sink's Fail as well as returning them; it returns
// nil on cancellation and at the end of finite input.
type Source interface {
	Run(ctx context.Context, sink Sink) error
	Close() error
}

// NewSource builds the source selected by cfg.Capture.Source.
func NewSource(cfg *config.Config) (Source, error) {
	switch cfg.Capture.Source {
	case config.SourcePortAudio:
		return NewPortAudioSource(PortAudioConfig{
			DeviceID:        cfg.Audio.InputDevice,
			SampleRate:      cfg.Audio.SampleRate,
			FramesPerBuffer: cfg.Audio.FramesPerBuffer,
			Channels:        cfg.Audio.InputChannels,
			LowLatency:      cfg.Audio.LowLatency,
		})
	case config.SourceWAV:
		return OpenWAV(cfg.Capture.File, cfg.Audio.FramesPerBuffer, cfg.Capture.Realtime)
	case config.SourceTone:
		return NewToneSource(ToneConfig{
			Frequency:  cfg.Capture.ToneFrequency,
			Amplitude:  cfg.Capture.ToneAmplitude,
			SampleRate: cfg.Audio.SampleRate,
			BlockSize:  cfg.Audio.FramesPerBuffer,
			Realtime:   cfg.Capture.Realtime,
		})
	default:
		return nil, fmt.Errorf("unknown capture source '%s'", cfg.Capture.Source)
	}
}

// fail reports err to the sink and returns it.
func fail(sink Sink, err error) error {
	sink.Fail(err)
	return err
}

// pace blocks until the stream position sent/sampleRate has been reached in
// wall-clock time since start. It returns false if ctx is cancelled first.
func pace(ctx context.Context, start time.Time, sent int64, sampleRate float64) bool {
	due := start.Add(time.Duration(float64(sent) / sampleRate * float64(time.Second)))
	wait := time.Until(due)
	if wait <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
