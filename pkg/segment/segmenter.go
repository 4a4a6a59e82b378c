// Package segment splits mono 16-bit PCM audio into contiguous spans labelled
// active (speech or other sound) or inactive (silence).
//
// Modes 0 to 3 slice the audio into fixed frames, classify each frame with a
// vad.Engine session at that aggressiveness, and smooth the verdicts with a
// sliding-window hysteresis. Mode 4 ([ModeRough]) skips the classifier and
// thresholds per-window RMS energy and zero crossing rate instead.
//
// Every result covers the whole input: the first span starts at 0, the last
// ends at the audio duration, and adjacent spans alternate between active and
// inactive.
package segment

import (
	"context"
	"fmt"
	"time"

	"github.com/MrWong99/vadsplit/pkg/audio"
	"github.com/MrWong99/vadsplit/pkg/provider/vad"
)

// Mode selects the detection strategy.
type Mode int

// ModeRough selects the energy and zero crossing rate path. Lower values are
// classifier aggressiveness levels.
const ModeRough Mode = 4

// IsRough reports whether m selects the classifier-free path.
func (m Mode) IsRough() bool { return m == ModeRough }

func (m Mode) String() string {
	if m.IsRough() {
		return "rough"
	}
	return fmt.Sprintf("vad-%d", int(m))
}

// Segmenter runs segmentation with a configured mode. It is not safe for
// concurrent use; SetMode and Filter must not overlap.
type Segmenter struct {
	engine vad.Engine
	mode   Mode
}

// New returns a Segmenter that opens classifier sessions from engine.
func New(engine vad.Engine, mode int) (*Segmenter, error) {
	if engine == nil {
		return nil, fmt.Errorf("segment: nil classifier engine: %w", ErrInvalidArgument)
	}
	s := &Segmenter{engine: engine}
	if err := s.SetMode(mode); err != nil {
		return nil, err
	}
	return s, nil
}

// SetMode changes the detection mode, 0 to 4.
func (s *Segmenter) SetMode(level int) error {
	if level < 0 || level > int(ModeRough) {
		return fmt.Errorf("segment: mode %d not in [0, %d]: %w", level, int(ModeRough), ErrInvalidArgument)
	}
	s.mode = Mode(level)
	return nil
}

// Mode returns the current detection mode.
func (s *Segmenter) Mode() Mode { return s.mode }

// Filter segments in and returns the span list. Empty audio yields an empty
// list.
func (s *Segmenter) Filter(ctx context.Context, in Input, opts ...Option) ([]Span, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if in == nil {
		return nil, fmt.Errorf("segment: nil input: %w", ErrInvalidArgument)
	}
	pcm, rate, err := in.resolve(o.sampleRate)
	if err != nil {
		return nil, err
	}
	if len(pcm)%audio.SampleWidth != 0 {
		return nil, fmt.Errorf("segment: odd byte count %d for 16-bit PCM: %w", len(pcm), ErrInvalidArgument)
	}

	if s.mode.IsRough() {
		samples := audio.PCM16ToFloat64(pcm)
		audio.NormalizePeak(samples)
		spans, err := rough(samples, rate, o.frameMs, o.rmsThreshold, o.zcrThreshold, o.onDrop)
		if err != nil {
			return nil, err
		}
		return Assemble(spans, float64(len(samples))/float64(rate))
	}

	frames, err := audio.SplitFrames(pcm, rate, o.frameMs)
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	runs, err := s.filterFrames(ctx, frames, o)
	if err != nil {
		return nil, err
	}
	// The zero-padded tail frame is classified, but the timeline ends with
	// the real samples, as in the rough path.
	total := float64(len(pcm)/audio.SampleWidth) / float64(rate)
	return Assemble(clampEnd(RunsToSpans(runs), total), total)
}

// clampEnd cuts the last span back to total. Only the final frame can be
// padded, so no other span reaches past it.
func clampEnd(spans []Span, total float64) []Span {
	if n := len(spans); n > 0 {
		if end := round2(total); spans[n-1].End > end {
			spans[n-1].End = end
		}
	}
	return spans
}

// FilterFrames classifies pre-built frames and groups them into runs with
// [Hysteresis]. A classifier session is opened for the call and closed before
// it returns. Only WithPadding and WithVoiceThreshold apply. Rough mode has
// no frame classifier and is rejected.
func (s *Segmenter) FilterFrames(ctx context.Context, frames []audio.Frame, opts ...Option) ([]FrameRun, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return s.filterFrames(ctx, frames, o)
}

func (s *Segmenter) filterFrames(ctx context.Context, frames []audio.Frame, o options) (_ []FrameRun, err error) {
	if s.mode.IsRough() {
		return nil, fmt.Errorf("segment: %s mode has no frame classifier: %w", s.mode, ErrInvalidArgument)
	}
	if err := checkVoiceThreshold(o.voiceThreshold); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, nil
	}
	rate, dur, err := frameFormat(frames)
	if err != nil {
		return nil, err
	}
	if _, err := windowSize(o.paddingMs, dur); err != nil {
		return nil, err
	}

	sess, err := s.engine.NewSession(vad.Config{
		SampleRate:  rate,
		FrameSizeMs: int(dur / time.Millisecond),
		Mode:        int(s.mode),
	})
	if err != nil {
		return nil, fmt.Errorf("segment: open classifier: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("segment: close classifier: %w", cerr)
		}
	}()

	return Hysteresis(ctx, frames, sess, o.paddingMs, o.voiceThreshold)
}
