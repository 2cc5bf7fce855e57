// SPDX-License-Identifier: MIT
package capture

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"pitchscope/internal/log"
)

// PortAudioConfig describes the live input stream.
type PortAudioConfig struct {
	DeviceID        int     // Input device index, -1 for the default.
	SampleRate      float64 // Hz
	FramesPerBuffer int
	Channels        int // Captured channels; only the first is delivered.
	LowLatency      bool
}

// PortAudioSource captures live input through PortAudio.
//
// Performance Critical:
//   - Buffers are pre-allocated; the callback does not allocate
//   - The callback only copies and measures, analysis happens elsewhere
type PortAudioSource struct {
	cfg          PortAudioConfig
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	monoInput []int16 // First channel of the current callback buffer.
	meter     Meter
	sink      atomic.Pointer[sinkBox]
	closed    atomic.Bool
}

type sinkBox struct{ sink Sink }

// NewPortAudioSource initializes PortAudio and resolves the input device.
// Close terminates PortAudio.
func NewPortAudioSource(cfg PortAudioConfig) (*PortAudioSource, error) {
	if cfg.Channels < 1 {
		cfg.Channels = 1
	}
	if err := Initialize(); err != nil {
		return nil, err
	}

	inputDevice, err := InputDevice(cfg.DeviceID)
	if err != nil {
		Terminate()
		return nil, err
	}
	if inputDevice.MaxInputChannels < cfg.Channels {
		log.Warnf("Capture: Device %s has %d input channels, capturing %d", inputDevice.Name, inputDevice.MaxInputChannels, inputDevice.MaxInputChannels)
		cfg.Channels = inputDevice.MaxInputChannels
	}

	s := &PortAudioSource{
		cfg:         cfg,
		inputDevice: inputDevice,
		monoInput:   make([]int16, cfg.FramesPerBuffer),
	}
	if cfg.LowLatency {
		s.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		s.inputLatency = inputDevice.DefaultHighInputLatency
	}
	return s, nil
}

// Run opens and starts the input stream, then blocks until ctx is cancelled.
func (s *PortAudioSource) Run(ctx context.Context, sink Sink) error {
	if s.closed.Load() {
		return fail(sink, errors.New("portaudio source is closed"))
	}
	s.sink.Store(&sinkBox{sink: sink})
	defer s.sink.Store(nil)

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: s.cfg.Channels,
			Device:   s.inputDevice,
			Latency:  s.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: s.cfg.FramesPerBuffer,
		SampleRate:      s.cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, s.processInputStream)
	if err != nil {
		return fail(sink, fmt.Errorf("failed to open input stream: %w", err))
	}
	s.inputStream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		s.inputStream = nil
		return fail(sink, fmt.Errorf("failed to start input stream: %w", err))
	}

	log.WithFields(log.Fields{
		"device":      s.inputDevice.Name,
		"sample_rate": s.cfg.SampleRate,
		"frames":      s.cfg.FramesPerBuffer,
		"channels":    s.cfg.Channels,
		"latency":     s.inputLatency,
	}).Info("Capture: Input stream started")

	<-ctx.Done()

	if err := s.stopInputStream(); err != nil {
		return fail(sink, err)
	}
	log.Infof("Capture: Input stream stopped")
	return nil
}

func (s *PortAudioSource) stopInputStream() error {
	if s.inputStream != nil {
		if err := s.inputStream.Stop(); err != nil {
			return err
		}
		if err := s.inputStream.Close(); err != nil {
			return err
		}
		s.inputStream = nil
	}
	return nil
}

// processInputStream is the core audio callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
func (s *PortAudioSource) processInputStream(in []int16) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	box := s.sink.Load()
	if box == nil {
		return
	}
	mono := downmix(s.monoInput, in, s.cfg.Channels)
	avg, peak := s.meter.Measure(mono)
	box.sink.UpdateLevels(avg, peak)
	box.sink.Ingest(mono, s.cfg.SampleRate)
}

// Close terminates PortAudio. It is safe to call more than once.
func (s *PortAudioSource) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return Terminate()
}

// downmix copies the first channel of interleaved into dst and returns the
// filled prefix. Mono input is returned as is.
func downmix(dst, interleaved []int16, channels int) []int16 {
	if channels <= 1 {
		return interleaved
	}
	frames := min(len(dst), len(interleaved)/channels)
	for i := range frames {
		dst[i] = interleaved[i*channels]
	}
	return dst[:frames]
}
