// SPDX-License-Identifier: MIT
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"pitchscope/internal/log"
)

// WAVSource replays a PCM WAV file. With realtime set, blocks are delivered
// at the file's sample rate; otherwise as fast as the sink accepts them.
type WAVSource struct {
	path      string
	file      *os.File
	decoder   *wav.Decoder
	blockSize int
	realtime  bool

	sampleRate float64
	channels   int
	bitDepth   int
}

// OpenWAV opens path and reads its header. blockSize is the number of
// frames per delivered block.
func OpenWAV(path string, blockSize int, realtime bool) (*WAVSource, error) {
	if blockSize < 1 {
		return nil, fmt.Errorf("block size must be positive, got %d", blockSize)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		file.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}
	format := decoder.Format()
	if format == nil || format.SampleRate <= 0 || format.NumChannels < 1 {
		file.Close()
		return nil, fmt.Errorf("unsupported WAV format in %s", path)
	}
	bitDepth := int(decoder.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		file.Close()
		return nil, fmt.Errorf("unsupported WAV bit depth %d in %s", bitDepth, path)
	}

	return &WAVSource{
		path:       path,
		file:       file,
		decoder:    decoder,
		blockSize:  blockSize,
		realtime:   realtime,
		sampleRate: float64(format.SampleRate),
		channels:   format.NumChannels,
		bitDepth:   bitDepth,
	}, nil
}

// SampleRate returns the file's sample rate in Hz.
func (s *WAVSource) SampleRate() float64 { return s.sampleRate }

// Channels returns the file's channel count.
func (s *WAVSource) Channels() int { return s.channels }

// Duration returns the playing time of the file.
func (s *WAVSource) Duration() (time.Duration, error) {
	return s.decoder.Duration()
}

// Run decodes the file block by block into sink. It returns nil at the end
// of the file or when ctx is cancelled.
func (s *WAVSource) Run(ctx context.Context, sink Sink) error {
	buf := &audio.IntBuffer{
		Format:         s.decoder.Format(),
		Data:           make([]int, s.blockSize*s.channels),
		SourceBitDepth: s.bitDepth,
	}
	mono := make([]int16, s.blockSize)
	var meter Meter

	log.WithFields(log.Fields{
		"file":        s.path,
		"sample_rate": s.sampleRate,
		"channels":    s.channels,
		"bit_depth":   s.bitDepth,
		"realtime":    s.realtime,
	}).Info("Capture: Replaying WAV file")

	start := time.Now()
	var sent int64
	for ctx.Err() == nil {
		buf.Data = buf.Data[:cap(buf.Data)]
		n, err := s.decoder.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return fail(sink, fmt.Errorf("failed to decode %s: %w", s.path, err))
		}
		if n == 0 {
			break
		}

		frames := n / s.channels
		for i := range frames {
			mono[i] = s.toInt16(buf.Data[i*s.channels])
		}
		block := mono[:frames]

		avg, peak := meter.Measure(block)
		sink.UpdateLevels(avg, peak)
		sink.Ingest(block, s.sampleRate)
		sent += int64(frames)

		if s.realtime && !pace(ctx, start, sent, s.sampleRate) {
			break
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}
	log.Debugf("Capture: Delivered %d frames from %s", sent, s.path)
	return nil
}

// toInt16 rescales a decoded sample to 16 bits. go-audio delivers 8-bit
// PCM unsigned and wider depths as signed integers.
func (s *WAVSource) toInt16(v int) int16 {
	switch s.bitDepth {
	case 8:
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}

// Close closes the file.
func (s *WAVSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
