package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/vadsplit/pkg/audio"
)

// KnownEngines lists the classifier engine names shipped with vadsplit.
// Used by [Validate] to warn about unrecognised names.
var KnownEngines = []string{"webrtc", "energy"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default] and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	seg := cfg.Segmenter
	if seg.Mode < 0 || seg.Mode > 4 {
		errs = append(errs, fmt.Errorf("segmenter.mode %d is out of range [0, 4]", seg.Mode))
	}
	if !audio.IsSupportedFrameDuration(seg.FrameDurationMs) {
		errs = append(errs, fmt.Errorf("segmenter.frame_duration_ms %d is invalid; valid values: %v", seg.FrameDurationMs, audio.SupportedFrameDurations))
	}
	if seg.PaddingDurationMs < seg.FrameDurationMs {
		errs = append(errs, fmt.Errorf("segmenter.padding_duration_ms %d is shorter than frame_duration_ms %d", seg.PaddingDurationMs, seg.FrameDurationMs))
	}
	if seg.ThresholdVoiceFrames < 0.01 || seg.ThresholdVoiceFrames > 1 {
		errs = append(errs, fmt.Errorf("segmenter.threshold_voice_frames %.4f is out of range [0.01, 1.0]", seg.ThresholdVoiceFrames))
	}
	if seg.ThresholdRMS < 0 {
		errs = append(errs, fmt.Errorf("segmenter.threshold_rms %.4f must not be negative", seg.ThresholdRMS))
	}
	if seg.ThresholdZCR < 0 {
		errs = append(errs, fmt.Errorf("segmenter.threshold_zcr %.4f must not be negative", seg.ThresholdZCR))
	}

	if cfg.VAD.Engine == "" {
		errs = append(errs, errors.New("vad.engine is required"))
	} else if !slices.Contains(KnownEngines, cfg.VAD.Engine) {
		slog.Warn("unknown vad engine, may be a typo or a third-party engine",
			"name", cfg.VAD.Engine,
			"known", KnownEngines,
		)
	}

	if cfg.Output.Format != "" && !cfg.Output.Format.IsValid() {
		errs = append(errs, fmt.Errorf("output.format %q is invalid; valid values: table, json, yaml", cfg.Output.Format))
	}

	if cfg.Server.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes %d must not be negative", cfg.Server.MaxBodyBytes))
	}

	return errors.Join(errs...)
}
