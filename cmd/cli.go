// SPDX-License-Identifier: MIT
package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"pitchscope/internal/analysis"
	"pitchscope/internal/config"
	"pitchscope/internal/listener"
	"pitchscope/pkg/build"
)

// Commands dispatched by Execute.
const (
	CommandListen  = "listen"
	CommandList    = "list"
	CommandConfig  = "config"
	CommandAnalyze = "analyze"
)

// Invocation is the result of parsing the command line.
type Invocation struct {
	Command string
	Config  *config.Config
	File    string // WAV file for analyze.
	Top     int    // Spectral peaks printed by analyze.
}

// bindings maps configuration keys to the flags that override them.
var bindings = []struct{ key, flag string }{
	{"debug", "verbose"},
	{"log_level", "log-level"},
	{"log_format", "log-format"},
	{"audio.input_device", "device"},
	{"audio.input_channels", "channels"},
	{"audio.sample_rate", "sample-rate"},
	{"audio.frames_per_buffer", "frames-per-buffer"},
	{"audio.low_latency", "low-latency"},
	{"capture.source", "source"},
	{"capture.file", "file"},
	{"capture.realtime", "realtime"},
	{"capture.tone_frequency", "tone"},
	{"capture.tone_amplitude", "tone-amplitude"},
	{"analysis.fft_size", "fft-size"},
	{"analysis.buffer_size", "buffer-size"},
	{"analysis.hop_size", "hop-size"},
	{"analysis.window", "window"},
	{"analysis.transform", "transform"},
	{"analysis.harmonics", "harmonics"},
	{"analysis.min_frequency", "min-frequency"},
	{"analysis.max_frequency", "max-frequency"},
	{"analysis.gate_threshold", "gate"},
	{"analysis.interpolate", "interpolate"},
	{"report.interval", "interval"},
	{"report.format", "format"},
}

// ParseArgs parses args (without the program name) and loads the layered
// configuration. The returned Invocation has an empty Command when cobra
// handled the request itself, e.g. --help or --version.
func ParseArgs(args []string) (*Invocation, error) {
	buildInfo := build.GetBuildFlags()
	inv := &Invocation{}
	var configPath string

	load := func(cmd *cobra.Command, command string) error {
		opts := make([]config.Option, 0, len(bindings))
		for _, b := range bindings {
			opts = append(opts, config.WithFlag(b.key, cmd.Flags().Lookup(b.flag)))
		}
		cfg, err := config.LoadConfig(configPath, opts...)
		if err != nil {
			return err
		}
		inv.Command = command
		inv.Config = cfg
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, CommandListen)
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, CommandList)
		},
	}
	rootCmd.AddCommand(listCmd)

	// Config command
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, CommandConfig)
		},
	}
	rootCmd.AddCommand(configCmd)

	// Analyze command
	analyzeCmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyse a WAV file and print the pitch of its final window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := load(cmd, CommandAnalyze); err != nil {
				return err
			}
			inv.File = args[0]
			inv.Config.Capture.Source = config.SourceWAV
			inv.Config.Capture.File = args[0]
			inv.Config.Capture.Realtime = false
			return inv.Config.Validate()
		},
	}
	analyzeCmd.Flags().IntVarP(&inv.Top, "top", "n", 5, "Number of spectral peaks to print")
	rootCmd.AddCommand(analyzeCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "C", "",
		"Configuration file (default: pitchscope.yaml or config.yaml if present)")

	// Audio Device Configuration
	flags.IntP("device", "d", config.MinDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	flags.IntP("channels", "c", 1,
		"Number of channels to capture; only the first is analysed")
	flags.Float64P("sample-rate", "s", 44100,
		"Sample rate, measured in Hertz (Hz)")
	flags.IntP("frames-per-buffer", "b", 512,
		"The number of frames per buffer (affects latency)")
	flags.BoolP("low-latency", "l", false,
		"Use low latency mode for real-time processing")

	// Capture Source Configuration
	flags.String("source", config.SourcePortAudio,
		"Capture source: portaudio, wav or tone")
	flags.StringP("file", "f", "",
		"WAV file for the wav source")
	flags.Bool("realtime", true,
		"Pace wav and tone sources at their sample rate")
	flags.Float64("tone", 440,
		"Frequency of the tone source (Hz)")
	flags.Float64("tone-amplitude", 0.5,
		"Amplitude of the tone source (0-1)")

	// Analysis Configuration
	flags.Int("fft-size", listener.DefaultFFTSize,
		"Samples per analysis window (power of 2)")
	flags.Int("buffer-size", listener.DefaultBufferSize,
		"Ring buffer capacity in samples (power of 2)")
	flags.Int("hop-size", 0,
		"New samples between analysis passes (0 = one window)")
	flags.String("window", analysis.Rectangular.String(),
		"Window function applied before the FFT")
	flags.String("transform", analysis.TransformGonum,
		"FFT implementation: gonum or godsp")
	flags.Int("harmonics", analysis.DefaultHarmonics,
		"Harmonics summed by the harmonic spectrum")
	flags.Float64("min-frequency", listener.DefaultMinFrequency,
		"Lowest frequency considered for pitch (Hz)")
	flags.Float64("max-frequency", 0,
		"Highest frequency considered for pitch (Hz, 0 = Nyquist)")
	flags.Float64("gate", listener.DefaultGateThreshold,
		"Signal gate as a fraction of full scale (0 disables)")
	flags.Bool("interpolate", false,
		"Refine peaks with parabolic interpolation")

	// Report Configuration
	flags.Duration("interval", 250*time.Millisecond,
		"Time between pitch reports")
	flags.String("format", config.FormatText,
		"Report format: text, log or none")

	// Debug Configuration
	flags.BoolP("verbose", "v", false,
		"Show verbose output")
	flags.String("log-level", "info",
		"Log level: debug, info, warn, error")
	flags.String("log-format", "text",
		"Log format: text or json")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return inv, nil
}
