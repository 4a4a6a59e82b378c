// Package config provides the configuration schema, loader, watcher and
// engine registry for vadsplit.
package config

import "slices"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// OutputFormat selects how span lists are printed by the CLI.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// IsValid reports whether f is a recognised output format.
func (f OutputFormat) IsValid() bool {
	return slices.Contains([]OutputFormat{FormatTable, FormatJSON, FormatYAML}, f)
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	Segmenter SegmenterConfig `yaml:"segmenter"`
	VAD       VADConfig       `yaml:"vad"`
	Output    OutputConfig    `yaml:"output"`
	Server    ServerConfig    `yaml:"server"`
}

// SegmenterConfig holds the defaults applied to every segmentation call.
type SegmenterConfig struct {
	// Mode is 0..3 for classifier aggressiveness or 4 for the energy and
	// zero crossing rate path.
	Mode int `yaml:"mode"`

	// FrameDurationMs is 10, 20 or 30.
	FrameDurationMs int `yaml:"frame_duration_ms"`

	// PaddingDurationMs is the hysteresis window length. Must be at least
	// FrameDurationMs.
	PaddingDurationMs int `yaml:"padding_duration_ms"`

	// ThresholdVoiceFrames is the fraction of window frames that must
	// disagree with the current state to flip it. Range [0.01, 1.0].
	ThresholdVoiceFrames float64 `yaml:"threshold_voice_frames"`

	// ThresholdRMS and ThresholdZCR apply to mode 4 only.
	ThresholdRMS float64 `yaml:"threshold_rms"`
	ThresholdZCR float64 `yaml:"threshold_zcr"`
}

// VADConfig selects the frame classifier backend.
type VADConfig struct {
	// Engine names a registered engine (e.g., "webrtc", "energy").
	Engine string `yaml:"engine"`

	// Options holds engine-specific values. Values may be strings, numbers,
	// booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// OutputConfig controls CLI output.
type OutputConfig struct {
	Format OutputFormat `yaml:"format"`

	// KeepSourceRate writes split segments at the sample rate of the input
	// file rather than the analysis rate.
	KeepSourceRate bool `yaml:"keep_source_rate"`
}

// ServerConfig holds HTTP settings for the serve command.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8090").
	ListenAddr string `yaml:"listen_addr"`

	// MaxBodyBytes caps the size of uploaded audio.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// Default returns the configuration used when no file is given. Fields
// missing from a loaded file take these values.
func Default() *Config {
	return &Config{
		LogLevel: LogInfo,
		Segmenter: SegmenterConfig{
			Mode:                 3,
			FrameDurationMs:      10,
			PaddingDurationMs:    50,
			ThresholdVoiceFrames: 0.9,
			ThresholdRMS:         0.1,
			ThresholdZCR:         0.5,
		},
		VAD: VADConfig{Engine: "webrtc"},
		Output: OutputConfig{
			Format:         FormatTable,
			KeepSourceRate: true,
		},
		Server: ServerConfig{
			ListenAddr:   ":8090",
			MaxBodyBytes: 50 << 20,
		},
	}
}
