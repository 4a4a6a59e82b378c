package segment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/vadsplit/pkg/audio"
)

// Classifier decides whether a single frame carries voice. A
// vad.SessionHandle satisfies it.
type Classifier interface {
	IsVoiced(frame []byte) (bool, error)
}

// Voice threshold bounds, both inclusive.
const (
	MinVoiceThreshold = 0.01
	MaxVoiceThreshold = 1.0
)

type state int

const (
	untriggered state = iota
	triggered
)

func (s state) String() string {
	if s == triggered {
		return "triggered"
	}
	return "untriggered"
}

// window is a fixed-capacity ring of the most recent frames and their
// verdicts. It keeps a running count of voiced entries.
type window struct {
	frames []audio.Frame
	voiced []bool
	head   int
	size   int
	nVoice int
}

func newWindow(capacity int) *window {
	return &window{
		frames: make([]audio.Frame, capacity),
		voiced: make([]bool, capacity),
	}
}

func (w *window) push(f audio.Frame, voiced bool) {
	idx := (w.head + w.size) % len(w.frames)
	if w.size == len(w.frames) {
		if w.voiced[w.head] {
			w.nVoice--
		}
		w.head = (w.head + 1) % len(w.frames)
	} else {
		w.size++
	}
	w.frames[idx] = f
	w.voiced[idx] = voiced
	if voiced {
		w.nVoice++
	}
}

func (w *window) full() bool { return w.size == len(w.frames) }

// count returns the number of entries whose verdict equals voiced.
func (w *window) count(voiced bool) int {
	if voiced {
		return w.nVoice
	}
	return w.size - w.nVoice
}

// drain returns the buffered frames oldest first and empties the window.
func (w *window) drain() []audio.Frame {
	out := make([]audio.Frame, w.size)
	for i := range w.size {
		out[i] = w.frames[(w.head+i)%len(w.frames)]
	}
	clear(w.frames)
	w.head, w.size, w.nVoice = 0, 0, 0
	return out
}

// frameFormat returns the sample rate and duration shared by all frames, or
// ErrInconsistentFrames.
func frameFormat(frames []audio.Frame) (int, time.Duration, error) {
	rate := func(f audio.Frame) int {
		if f.SampleRate != 0 {
			return f.SampleRate
		}
		return f.ImpliedSampleRate()
	}
	r0, d0 := rate(frames[0]), frames[0].Duration
	for i, f := range frames[1:] {
		if r := rate(f); r != r0 {
			return 0, 0, fmt.Errorf("segment: frame %d has sample rate %d, want %d: %w", i+1, r, r0, ErrInconsistentFrames)
		}
		if f.Duration != d0 {
			return 0, 0, fmt.Errorf("segment: frame %d lasts %v, want %v: %w", i+1, f.Duration, d0, ErrInconsistentFrames)
		}
		if len(f.Data) != len(frames[0].Data) {
			return 0, 0, fmt.Errorf("segment: frame %d is %d bytes, want %d: %w", i+1, len(f.Data), len(frames[0].Data), ErrInconsistentFrames)
		}
	}
	if d0 <= 0 {
		return 0, 0, fmt.Errorf("segment: frame duration %v: %w", d0, ErrInvalidArgument)
	}
	return r0, d0, nil
}

func checkVoiceThreshold(threshold float64) error {
	if threshold < MinVoiceThreshold || threshold > MaxVoiceThreshold {
		return fmt.Errorf("segment: voice threshold %v not in [%v, %v]: %w", threshold, MinVoiceThreshold, MaxVoiceThreshold, ErrInvalidArgument)
	}
	return nil
}

// windowSize returns the ring capacity for the given padding and frame
// duration.
func windowSize(paddingMs int, frameDur time.Duration) (int, error) {
	frameMs := int(frameDur / time.Millisecond)
	if frameMs <= 0 || paddingMs < frameMs {
		return 0, fmt.Errorf("segment: padding %dms shorter than frame %v: %w", paddingMs, frameDur, ErrInvalidArgument)
	}
	return paddingMs / frameMs, nil
}

// Hysteresis groups frames into runs of active and inactive audio using a
// sliding window of paddingMs worth of frames. The state flips once the
// window is full and more than threshold of its entries disagree with the
// current state. On a flip the frames still in the window move from the
// closing run to the new one, so each input frame lands in exactly one run.
//
// classify is called once per frame, in order.
func Hysteresis(ctx context.Context, frames []audio.Frame, classify Classifier, paddingMs int, threshold float64) ([]FrameRun, error) {
	if err := checkVoiceThreshold(threshold); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, nil
	}
	_, dur, err := frameFormat(frames)
	if err != nil {
		return nil, err
	}
	n, err := windowSize(paddingMs, dur)
	if err != nil {
		return nil, err
	}

	limit := threshold * float64(n)
	win := newWindow(n)
	st := untriggered
	runs := []FrameRun{{Active: false}}

	for i, f := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		voiced, err := classify.IsVoiced(f.Data)
		if err != nil {
			return nil, fmt.Errorf("segment: classify frame %d: %w", i, err)
		}
		win.push(f, voiced)

		// In the untriggered state the window votes for voice; in the
		// triggered state it votes for silence.
		against := win.count(st == untriggered)
		if !win.full() || float64(against) <= limit {
			cur := &runs[len(runs)-1]
			cur.Frames = append(cur.Frames, f)
			continue
		}

		cur := &runs[len(runs)-1]
		keep := max(len(cur.Frames)-(n-1), 0)
		cur.Frames = cur.Frames[:keep:keep]
		if st == untriggered {
			st = triggered
		} else {
			st = untriggered
		}
		runs = append(runs, FrameRun{Active: st == triggered, Frames: win.drain()})
		slog.Debug("segment: state change", "frame", i, "state", st, "at", f.Timestamp)
	}

	if len(runs[0].Frames) == 0 {
		runs = runs[1:]
	}
	return runs, nil
}
