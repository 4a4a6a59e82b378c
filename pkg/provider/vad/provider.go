// Package vad defines the Engine interface for per-frame voice activity
// detection backends.
//
// A VAD engine wraps a frame-level speech detector (WebRTC VAD, an energy
// gate, or a model) and surfaces it as a stateful, per-stream session. Each
// session keeps its own internal state (smoothing history, adaptive noise
// floors) so that several audio streams can be classified independently.
//
// Detectors commonly carry warm-up bias: the verdict for a frame may depend on
// the frames that preceded it in the same session. Callers that need
// reproducible results open a fresh session per stream and close it when the
// stream ends.
//
// Implementations must be safe for concurrent use across different sessions.
// A single SessionHandle should not be shared across goroutines unless the
// implementation explicitly documents thread safety for that type.
package vad

import (
	"errors"
	"fmt"

	"github.com/MrWong99/vadsplit/pkg/audio"
)

// ErrClosed is returned by IsVoiced after Close has been called.
var ErrClosed = errors.New("vad: session closed")

// MaxMode is the most aggressive classifier mode.
const MaxMode = 3

// Config holds the parameters for a VAD session.
type Config struct {
	// SampleRate is the audio sample rate in Hz. Must match the rate of the PCM
	// frames passed to IsVoiced. One of [audio.SupportedSampleRates].
	SampleRate int

	// FrameSizeMs is the duration of each audio frame in milliseconds: 10, 20
	// or 30. IsVoiced returns an error if a frame does not match this size.
	FrameSizeMs int

	// Mode is the aggressiveness of the detector, 0 (least aggressive, most
	// frames flagged as speech) to [MaxMode] (most aggressive).
	Mode int
}

// FrameBytes returns the byte width of one frame for this configuration.
func (c Config) FrameBytes() int {
	return audio.FrameWidth(c.SampleRate, c.FrameSizeMs)
}

// Validate checks that the configuration lies within the supported set.
func (c Config) Validate() error {
	var errs []error
	if !audio.IsSupportedSampleRate(c.SampleRate) {
		errs = append(errs, fmt.Errorf("vad: sample rate %d not in %v: %w", c.SampleRate, audio.SupportedSampleRates, audio.ErrInvalidArgument))
	}
	if !audio.IsSupportedFrameDuration(c.FrameSizeMs) {
		errs = append(errs, fmt.Errorf("vad: frame size %dms not in %v: %w", c.FrameSizeMs, audio.SupportedFrameDurations, audio.ErrInvalidArgument))
	}
	if c.Mode < 0 || c.Mode > MaxMode {
		errs = append(errs, fmt.Errorf("vad: mode %d not in [0, %d]: %w", c.Mode, MaxMode, audio.ErrInvalidArgument))
	}
	return errors.Join(errs...)
}

// SessionHandle represents an open VAD session for a single audio stream. It
// is an interface so that test code can supply mock implementations without a
// live engine.
type SessionHandle interface {
	// IsVoiced classifies a single frame of raw little-endian 16-bit mono PCM
	// at the SampleRate and FrameSizeMs configured for the session. It returns
	// an error if the frame size is wrong or the detector fails.
	IsVoiced(frame []byte) (bool, error)

	// Reset clears accumulated detection state without closing the session.
	Reset()

	// Close releases all resources associated with the session. After Close,
	// IsVoiced returns [ErrClosed]. Calling Close more than once is safe and
	// returns nil.
	Close() error
}

// Engine is the factory for VAD sessions. It is the top-level interface
// implemented by each VAD backend.
//
// Implementations must be safe for concurrent use: multiple goroutines may
// call NewSession simultaneously to create independent sessions.
type Engine interface {
	// NewSession creates a new VAD session with the given configuration. The
	// session is immediately ready to accept audio frames.
	//
	// Returns an error if the configuration is invalid or if the engine cannot
	// allocate resources for the session.
	NewSession(cfg Config) (SessionHandle, error)
}

// CheckFrame reports an error when frame does not have the width implied by
// cfg. Engines call it at the top of IsVoiced.
func CheckFrame(cfg Config, frame []byte) error {
	if want := cfg.FrameBytes(); len(frame) != want {
		return fmt.Errorf("vad: frame is %d bytes, want %d: %w", len(frame), want, audio.ErrInvalidArgument)
	}
	return nil
}
