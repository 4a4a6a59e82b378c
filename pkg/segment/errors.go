package segment

import (
	"errors"

	"github.com/MrWong99/vadsplit/pkg/audio"
)

var (
	// ErrInvalidArgument reports an unsupported parameter or input. It is the
	// same value as [audio.ErrInvalidArgument] so either can be matched with
	// errors.Is.
	ErrInvalidArgument = audio.ErrInvalidArgument

	// ErrInconsistentFrames reports a frame sequence that mixes sample rates
	// or frame durations. It is the same value as [audio.ErrInconsistentFrames].
	ErrInconsistentFrames = audio.ErrInconsistentFrames

	// ErrDegenerateSegments reports a span sequence that fails the coverage
	// or contiguity checks, or unbalanced run boundaries in rough mode.
	ErrDegenerateSegments = errors.New("degenerate segments")
)
