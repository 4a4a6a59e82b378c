package segment

import (
	"fmt"
	"math"
	"time"

	"github.com/MrWong99/vadsplit/pkg/audio"
)

// Span is a labelled, time-bounded stretch of the output timeline. Start and
// End are in seconds, rounded to two decimals.
type Span struct {
	Start  float64 `json:"start" yaml:"start"`
	End    float64 `json:"end" yaml:"end"`
	Active bool    `json:"active" yaml:"active"`
}

// Duration returns End - Start in seconds.
func (s Span) Duration() float64 { return s.End - s.Start }

func (s Span) String() string {
	state := "inactive"
	if s.Active {
		state = "active"
	}
	return fmt.Sprintf("[%.2f, %.2f, %s]", s.Start, s.End, state)
}

// FrameRun is a maximal sequence of consecutive frames sharing one state.
type FrameRun struct {
	Active bool
	Frames []audio.Frame
}

// Duration returns the summed duration of the frames in the run.
func (r FrameRun) Duration() time.Duration {
	var d time.Duration
	for _, f := range r.Frames {
		d += f.Duration
	}
	return d
}

// RunsToSpans lays runs end to end on the timeline, starting at 0. Boundaries
// are accumulated as whole frame durations and rounded to two decimals only
// when emitted, so rounding does not drift across runs.
func RunsToSpans(runs []FrameRun) []Span {
	spans := make([]Span, 0, len(runs))
	var offset time.Duration
	for _, r := range runs {
		end := offset + r.Duration()
		spans = append(spans, Span{
			Start:  round2(offset.Seconds()),
			End:    round2(end.Seconds()),
			Active: r.Active,
		})
		offset = end
	}
	return spans
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
