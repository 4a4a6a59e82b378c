package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be hot-reloaded by a running server are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// SegmenterFields names the segmenter keys whose values changed, in
	// schema order (e.g., "mode", "threshold_rms").
	SegmenterFields []string

	// VADChanged is true when the engine name or its options changed. A new
	// engine must be built from the registry.
	VADChanged bool

	// ServerChanged is true when listen address or body limit changed. These
	// need a restart and are only reported.
	ServerChanged bool
}

// SegmenterChanged reports whether any segmenter default changed.
func (d ConfigDiff) SegmenterChanged() bool { return len(d.SegmenterFields) > 0 }

// Empty reports whether nothing tracked changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.SegmenterChanged() && !d.VADChanged && !d.ServerChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}

	o, n := old.Segmenter, new.Segmenter
	fields := []struct {
		name    string
		changed bool
	}{
		{"mode", o.Mode != n.Mode},
		{"frame_duration_ms", o.FrameDurationMs != n.FrameDurationMs},
		{"padding_duration_ms", o.PaddingDurationMs != n.PaddingDurationMs},
		{"threshold_voice_frames", o.ThresholdVoiceFrames != n.ThresholdVoiceFrames},
		{"threshold_rms", o.ThresholdRMS != n.ThresholdRMS},
		{"threshold_zcr", o.ThresholdZCR != n.ThresholdZCR},
	}
	for _, f := range fields {
		if f.changed {
			d.SegmenterFields = append(d.SegmenterFields, f.name)
		}
	}

	d.VADChanged = !old.VAD.Equal(new.VAD)

	d.ServerChanged = old.Server != new.Server
	return d
}

// Equal reports whether c and o select the same engine with the same
// options.
func (c VADConfig) Equal(o VADConfig) bool {
	return c.Engine == o.Engine && sameOptions(c.Options, o.Options)
}

// sameOptions compares two option maps holding scalar YAML values.
func sameOptions(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		// Nested maps and slices are not comparable; treat them as changed.
		switch av.(type) {
		case map[string]any, []any:
			return false
		}
		if av != bv {
			return false
		}
	}
	return true
}
