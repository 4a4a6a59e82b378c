// Package audio defines the PCM frame and clip types shared by the
// segmenter and the audio sources, plus the helpers that bring decoded audio
// to mono 16-bit PCM at a rate the frame classifier supports.
//
// Supported rates are 8, 16, 32 and 48 kHz and frames are 10, 20 or 30 ms.
// Other rates are aligned with [AlignSampleRate].
package audio

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidArgument is returned when audio parameters fall outside the
// supported set (sample rate, frame duration, sample width, channel count).
var ErrInvalidArgument = errors.New("invalid argument")

// ErrInconsistentFrames is returned when a frame sequence mixes sample rates
// or frame durations.
var ErrInconsistentFrames = errors.New("inconsistent frames")

// SampleWidth is the only supported PCM sample width in bytes (16-bit signed).
const SampleWidth = 2

// Frame is a fixed-duration slice of mono 16-bit PCM audio. Frames are
// produced by [SplitFrames] and must not be modified after creation.
type Frame struct {
	// Data holds little-endian int16 PCM samples. Its length is always
	// SampleRate * Duration * 2 bytes.
	Data []byte

	// SampleRate in Hz. One of [SupportedSampleRates].
	SampleRate int

	// Timestamp is the offset of the first sample relative to stream start.
	Timestamp time.Duration

	// Duration is the length of the frame.
	Duration time.Duration
}

// ImpliedSampleRate derives the sample rate from the byte length and duration
// of the frame. It returns 0 for a zero-duration frame.
func (f Frame) ImpliedSampleRate() int {
	if f.Duration <= 0 {
		return 0
	}
	samples := len(f.Data) / SampleWidth
	return int(math.Round(float64(samples) / f.Duration.Seconds()))
}

// Clip is a decoded block of audio as returned by an audio source such as the
// wav or mp3 packages. Sources always return mono 16-bit PCM at one of the
// supported sample rates, but callers constructing a Clip by hand may not, so
// consumers validate SampleWidth and Channels.
type Clip struct {
	// Data holds little-endian PCM samples.
	Data []byte

	// SampleRate in Hz.
	SampleRate int

	// SampleWidth is the number of bytes per sample. Must be 2.
	SampleWidth int

	// Channels is the number of interleaved channels. Must be 1.
	Channels int
}

// Duration returns the length of the clip. It returns 0 when the clip
// metadata is incomplete.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 || c.SampleWidth <= 0 || c.Channels <= 0 {
		return 0
	}
	samples := len(c.Data) / (c.SampleWidth * c.Channels)
	return time.Duration(samples) * time.Second / time.Duration(c.SampleRate)
}
