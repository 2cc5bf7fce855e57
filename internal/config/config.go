// SPDX-License-Identifier: MIT

// Package config loads the runtime configuration. Values are layered, lowest
// precedence first: built-in defaults, a YAML file, PITCHSCOPE_* environment
// variables, then command line flags bound with WithFlag.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pitchscope/internal/analysis"
	"pitchscope/internal/listener"
	"pitchscope/internal/log"
	"pitchscope/pkg/bitint"
)

// Core configuration constants that define the boundaries of the capture
// and analysis settings.
const (
	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer

	// EnvPrefix prefixes environment overrides, e.g. PITCHSCOPE_ANALYSIS_FFT_SIZE.
	EnvPrefix = "PITCHSCOPE"
)

// Capture source names.
const (
	SourcePortAudio = "portaudio"
	SourceWAV       = "wav"
	SourceTone      = "tone"
)

// Report formats.
const (
	FormatText = "text"
	FormatLog  = "log"
	FormatNone = "none"
)

// Files searched, in order, when LoadConfig is given an empty path.
var candidates = []string{"pitchscope.yaml", "config.yaml"}

// Config represents the main application configuration structure.
type Config struct {
	Debug     bool           `mapstructure:"debug" yaml:"debug"`           // Enable debug logging.
	LogLevel  string         `mapstructure:"log_level" yaml:"log_level"`   // Logging level (debug, info, warn, error).
	LogFormat string         `mapstructure:"log_format" yaml:"log_format"` // Log output format (text, json).
	Audio     AudioConfig    `mapstructure:"audio" yaml:"audio"`
	Capture   CaptureConfig  `mapstructure:"capture" yaml:"capture"`
	Analysis  AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Report    ReportConfig   `mapstructure:"report" yaml:"report"`
}

// AudioConfig holds settings for the PortAudio input stream.
type AudioConfig struct {
	InputDevice     int     `mapstructure:"input_device" yaml:"input_device"`           // PortAudio device index (-1 for default).
	SampleRate      float64 `mapstructure:"sample_rate" yaml:"sample_rate"`             // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int     `mapstructure:"frames_per_buffer" yaml:"frames_per_buffer"` // Frames delivered per callback.
	LowLatency      bool    `mapstructure:"low_latency" yaml:"low_latency"`             // Request low latency settings from PortAudio device.
	InputChannels   int     `mapstructure:"input_channels" yaml:"input_channels"`       // Channels captured; only the first is analysed.
}

// CaptureConfig selects where samples come from.
type CaptureConfig struct {
	Source        string  `mapstructure:"source" yaml:"source"`                 // portaudio, wav or tone.
	File          string  `mapstructure:"file" yaml:"file"`                     // WAV file for the wav source.
	Realtime      bool    `mapstructure:"realtime" yaml:"realtime"`             // Pace file and tone sources at their sample rate.
	ToneFrequency float64 `mapstructure:"tone_frequency" yaml:"tone_frequency"` // Tone source frequency (Hz).
	ToneAmplitude float64 `mapstructure:"tone_amplitude" yaml:"tone_amplitude"` // Tone source amplitude (0-1).
}

// AnalysisConfig holds the pitch analysis settings.
type AnalysisConfig struct {
	FFTSize       int     `mapstructure:"fft_size" yaml:"fft_size"`
	BufferSize    int     `mapstructure:"buffer_size" yaml:"buffer_size"`
	HopSize       int     `mapstructure:"hop_size" yaml:"hop_size"` // 0 analyses once per window refill.
	Window        string  `mapstructure:"window" yaml:"window"`
	Transform     string  `mapstructure:"transform" yaml:"transform"`
	Harmonics     int     `mapstructure:"harmonics" yaml:"harmonics"`
	MinFrequency  float64 `mapstructure:"min_frequency" yaml:"min_frequency"`
	MaxFrequency  float64 `mapstructure:"max_frequency" yaml:"max_frequency"` // 0 for Nyquist.
	GateThreshold float64 `mapstructure:"gate_threshold" yaml:"gate_threshold"`
	Interpolate   bool    `mapstructure:"interpolate" yaml:"interpolate"`
}

// ReportConfig controls the periodic pitch report.
type ReportConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Format   string        `mapstructure:"format" yaml:"format"` // text, log or none.
}

// setDefaults registers every key so environment overrides apply to all of
// them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("audio.input_device", MinDeviceID)
	v.SetDefault("audio.sample_rate", 44100.0)
	v.SetDefault("audio.frames_per_buffer", 512)
	v.SetDefault("audio.low_latency", false)
	v.SetDefault("audio.input_channels", 1)

	v.SetDefault("capture.source", SourcePortAudio)
	v.SetDefault("capture.file", "")
	v.SetDefault("capture.realtime", true)
	v.SetDefault("capture.tone_frequency", 440.0)
	v.SetDefault("capture.tone_amplitude", 0.5)

	v.SetDefault("analysis.fft_size", listener.DefaultFFTSize)
	v.SetDefault("analysis.buffer_size", listener.DefaultBufferSize)
	v.SetDefault("analysis.hop_size", 0)
	v.SetDefault("analysis.window", analysis.Rectangular.String())
	v.SetDefault("analysis.transform", analysis.TransformGonum)
	v.SetDefault("analysis.harmonics", analysis.DefaultHarmonics)
	v.SetDefault("analysis.min_frequency", listener.DefaultMinFrequency)
	v.SetDefault("analysis.max_frequency", 0.0)
	v.SetDefault("analysis.gate_threshold", listener.DefaultGateThreshold)
	v.SetDefault("analysis.interpolate", false)

	v.SetDefault("report.interval", 250*time.Millisecond)
	v.SetDefault("report.format", FormatText)
}

// Option customises LoadConfig.
type Option func(v *viper.Viper) error

// WithFlag binds a command line flag to a configuration key. The flag wins
// over every other layer when it was set on the command line.
func WithFlag(key string, flag *pflag.Flag) Option {
	return func(v *viper.Viper) error {
		if flag == nil {
			return nil
		}
		return v.BindPFlag(key, flag)
	}
}

// LoadConfig loads configuration from the YAML file at path. If path is
// empty it searches the working directory for pitchscope.yaml or
// config.yaml and falls back to built-in defaults when neither exists.
func LoadConfig(path string, opts ...Option) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		var values map[string]any
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		if err := v.MergeConfigMap(values); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Debugf("Config: Loaded %s", path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("failed to bind option: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks ranges and names. Sizes that are not powers of two are
// reported with the next valid size.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level '%s' is not one of debug, info, warn, error, fatal", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format '%s' must be text or json", c.LogFormat)
	}

	a := c.Audio
	if a.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, a.InputDevice)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate must be between %d and %d Hz, got %.1f", MinSampleRate, MaxSampleRate, a.SampleRate)
	}
	if a.FramesPerBuffer < 1 || a.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer must be between 1 and %d, got %d", MaxBufferFrames, a.FramesPerBuffer)
	}
	if a.InputChannels < 1 {
		return fmt.Errorf("audio.input_channels must be positive, got %d", a.InputChannels)
	}

	cp := c.Capture
	switch cp.Source {
	case SourcePortAudio:
	case SourceWAV:
		if cp.File == "" {
			return fmt.Errorf("capture.file must be set for the %s source", SourceWAV)
		}
	case SourceTone:
		if cp.ToneFrequency <= 0 || cp.ToneFrequency >= a.SampleRate/2 {
			return fmt.Errorf("capture.tone_frequency must be between 0 and %.1f Hz, got %.1f", a.SampleRate/2, cp.ToneFrequency)
		}
		if cp.ToneAmplitude <= 0 || cp.ToneAmplitude > 1 {
			return fmt.Errorf("capture.tone_amplitude must be in (0, 1], got %f", cp.ToneAmplitude)
		}
	default:
		return fmt.Errorf("capture.source '%s' must be %s, %s or %s", cp.Source, SourcePortAudio, SourceWAV, SourceTone)
	}

	an := c.Analysis
	if !bitint.IsPowerOfTwo(an.FFTSize) {
		return fmt.Errorf("analysis.fft_size must be a power of 2, got %d (try %d)", an.FFTSize, bitint.NextPowerOfTwo(an.FFTSize))
	}
	if !bitint.IsPowerOfTwo(an.BufferSize) {
		return fmt.Errorf("analysis.buffer_size must be a power of 2, got %d (try %d)", an.BufferSize, bitint.NextPowerOfTwo(an.BufferSize))
	}
	if an.FFTSize > an.BufferSize {
		return fmt.Errorf("analysis.fft_size %d exceeds analysis.buffer_size %d", an.FFTSize, an.BufferSize)
	}
	if an.HopSize < 0 || an.HopSize > an.BufferSize {
		return fmt.Errorf("analysis.hop_size must be between 0 and %d, got %d", an.BufferSize, an.HopSize)
	}
	if _, err := analysis.ParseWindowFunc(an.Window); err != nil {
		return fmt.Errorf("analysis.window: %w", err)
	}
	switch strings.ToLower(an.Transform) {
	case analysis.TransformGonum, analysis.TransformGoDSP:
	default:
		return fmt.Errorf("analysis.transform '%s' must be %s or %s", an.Transform, analysis.TransformGonum, analysis.TransformGoDSP)
	}
	if an.Harmonics < 1 {
		return fmt.Errorf("analysis.harmonics must be positive, got %d", an.Harmonics)
	}
	if an.MinFrequency < 0 || an.MaxFrequency < 0 {
		return fmt.Errorf("analysis frequency range must be non-negative")
	}
	if an.MaxFrequency > 0 && an.MaxFrequency <= an.MinFrequency {
		return fmt.Errorf("analysis.max_frequency %.1f must exceed analysis.min_frequency %.1f", an.MaxFrequency, an.MinFrequency)
	}
	if an.GateThreshold < 0 || an.GateThreshold > 1 {
		return fmt.Errorf("analysis.gate_threshold must be between 0 and 1, got %f", an.GateThreshold)
	}

	switch c.Report.Format {
	case FormatText, FormatLog, FormatNone:
	default:
		return fmt.Errorf("report.format '%s' must be %s, %s or %s", c.Report.Format, FormatText, FormatLog, FormatNone)
	}
	if c.Report.Interval <= 0 {
		return fmt.Errorf("report.interval must be positive, got %s", c.Report.Interval)
	}
	return nil
}

// ListenerOptions maps the analysis section to listener options.
func (c *Config) ListenerOptions() (listener.Options, error) {
	window, err := analysis.ParseWindowFunc(c.Analysis.Window)
	if err != nil {
		return listener.Options{}, err
	}
	gate := c.Analysis.GateThreshold
	if gate == 0 {
		// Zero means "use the default" to the listener; keep the gate fully open.
		gate = -1
	}
	return listener.Options{
		BufferSize:    c.Analysis.BufferSize,
		WindowSize:    c.Analysis.FFTSize,
		HopSize:       c.Analysis.HopSize,
		Window:        window,
		Transform:     strings.ToLower(c.Analysis.Transform),
		Harmonics:     c.Analysis.Harmonics,
		MinFrequency:  c.Analysis.MinFrequency,
		MaxFrequency:  c.Analysis.MaxFrequency,
		GateThreshold: gate,
		Interpolate:   c.Analysis.Interpolate,
	}, nil
}

// WriteYAML writes the configuration as YAML.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
