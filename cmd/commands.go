// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"pitchscope/internal/analysis"
	"pitchscope/internal/capture"
	"pitchscope/internal/config"
	"pitchscope/internal/listener"
	"pitchscope/internal/log"
	"pitchscope/internal/report"
)

// ConfigureLogging applies the logging section of cfg.
func ConfigureLogging(cfg *config.Config) {
	level, _ := log.ParseLevel(cfg.LogLevel)
	if cfg.Debug {
		level = log.LevelDebug
	}
	log.SetLevel(level)
	log.SetFormat(strings.ToLower(cfg.LogFormat))
}

// Execute runs the parsed command until it completes or ctx is cancelled.
// Human-readable output goes to w.
func Execute(ctx context.Context, inv *Invocation, w io.Writer) error {
	switch inv.Command {
	case CommandList:
		devices, err := capture.Devices()
		if err != nil {
			return fmt.Errorf("failed to list devices: %w", err)
		}
		capture.ListDevices(w, devices)
		return nil
	case CommandConfig:
		return inv.Config.WriteYAML(w)
	case CommandAnalyze:
		return Analyze(ctx, inv.Config, inv.File, inv.Top, w)
	case CommandListen:
		return Listen(ctx, inv.Config, w)
	case "":
		return nil
	default:
		return fmt.Errorf("unknown command '%s'", inv.Command)
	}
}

// NewTransport returns the report transport for format, or nil for
// config.FormatNone.
func NewTransport(format string, w io.Writer) (report.Transport, error) {
	switch format {
	case config.FormatText:
		return report.NewTextTransport(w), nil
	case config.FormatLog:
		return report.NewLogTransport(), nil
	case config.FormatNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown report format '%s'", format)
	}
}

// Listen captures from the configured source and reports the pitch until
// ctx is cancelled, the input ends or the source fails. Finite inputs get
// one last report of their final window.
func Listen(ctx context.Context, cfg *config.Config, w io.Writer) error {
	opts, err := cfg.ListenerOptions()
	if err != nil {
		return err
	}
	l, err := listener.New(opts)
	if err != nil {
		return err
	}
	defer l.Stop()

	source, err := capture.NewSource(cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	transport, err := NewTransport(cfg.Report.Format, w)
	if err != nil {
		return err
	}
	var publisher *report.Publisher
	if transport != nil {
		publisher, err = report.NewPublisher(cfg.Report.Interval, l, transport)
		if err != nil {
			return err
		}
		defer publisher.Close()
	}

	log.WithFields(log.Fields{
		"source":      cfg.Capture.Source,
		"fft_size":    opts.WindowSize,
		"buffer_size": opts.BufferSize,
		"window":      opts.Window.String(),
		"transform":   opts.Transform,
	}).Info("Listening")

	l.Listen()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return source.Run(gctx, l)
	})
	if publisher != nil {
		g.Go(func() error {
			publisher.Start()
			<-gctx.Done()
			return publisher.Stop()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := l.Err(); err != nil {
		return err
	}

	// The input ended on its own: report the final window.
	if ctx.Err() == nil && publisher != nil {
		if err := l.Flush(ctx); err != nil && !errors.Is(err, listener.ErrInsufficientData) {
			return err
		}
		return publisher.Publish()
	}
	return nil
}

// Analyze replays a WAV file as fast as it decodes and prints the estimate
// for its final window followed by the strongest spectral peaks and the
// level of each frequency band.
func Analyze(ctx context.Context, cfg *config.Config, path string, top int, w io.Writer) error {
	opts, err := cfg.ListenerOptions()
	if err != nil {
		return err
	}
	l, err := listener.New(opts)
	if err != nil {
		return err
	}
	defer l.Stop()

	source, err := capture.OpenWAV(path, cfg.Audio.FramesPerBuffer, false)
	if err != nil {
		return err
	}
	defer source.Close()

	l.Listen()
	if err := source.Run(ctx, l); err != nil {
		return err
	}
	if err := l.Flush(ctx); err != nil {
		if errors.Is(err, listener.ErrInsufficientData) {
			return fmt.Errorf("%s is shorter than one analysis window of %d samples: %w", path, opts.WindowSize, err)
		}
		return err
	}

	duration, err := source.Duration()
	if err != nil {
		log.Warnf("Analyze: Could not read duration of %s: %v", path, err)
	}
	fmt.Fprintf(w, "%s: %.0f Hz, %d channel(s), %s\n", path, source.SampleRate(), source.Channels(), duration)
	fmt.Fprintln(w, report.FormatReading(report.Snapshot(l, 1)))

	printPeaks(w, l, top)
	printBands(w, l)
	return nil
}

func printPeaks(w io.Writer, spectra analysis.SpectrumProvider, top int) {
	spectrum := spectra.FreqDB()
	peaks := analysis.Peaks(spectrum, top)
	if len(peaks) == 0 {
		return
	}
	fmt.Fprintf(w, "\nStrongest peaks\n")
	for i, bin := range peaks {
		hz := analysis.BinFrequency(bin, spectra.SampleRate(), spectra.WindowSize())
		fmt.Fprintf(w, "  %d. %9.2f Hz  %7.1f dB\n", i+1, hz, spectrum[bin])
	}
}

func printBands(w io.Writer, spectra analysis.SpectrumProvider) {
	fmt.Fprintf(w, "\nBand levels\n")
	levels := analysis.BandLevels(spectra.FreqDB(), spectra.SampleRate(), spectra.WindowSize(), analysis.DefaultBands)
	for _, band := range levels {
		if band.Bins == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-8s %7.1f dB\n", band.Name, band.PowerDB)
	}
}
