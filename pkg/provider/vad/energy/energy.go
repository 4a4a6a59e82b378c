// Package energy provides a pure-Go vad.Engine that gates frames on their RMS
// level in dBFS. It needs no cgo and carries no state between frames, which
// makes it the default for tests and for builds without the WebRTC detector.
package energy

import (
	"fmt"
	"math"

	"github.com/MrWong99/vadsplit/pkg/audio"
	"github.com/MrWong99/vadsplit/pkg/provider/vad"
)

// Compile-time assertion that Engine satisfies vad.Engine.
var _ vad.Engine = (*Engine)(nil)

// DefaultFloors holds the voiced/unvoiced boundary in dBFS for each mode. A
// higher mode is stricter, mirroring WebRTC aggressiveness.
var DefaultFloors = [vad.MaxMode + 1]float64{-50, -45, -40, -35}

// Engine creates energy-gate sessions. Safe for concurrent use.
type Engine struct {
	floor    float64
	hasFloor bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithFloor overrides the per-mode floor with a fixed dBFS threshold.
func WithFloor(dbfs float64) Option {
	return func(e *Engine) {
		e.floor = dbfs
		e.hasFloor = true
	}
}

// New returns an energy Engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, o := range opts {
		o(e)
	}
	return e
}

// NewSession validates cfg and returns a session using the floor for cfg.Mode
// or the override set with [WithFloor].
func (e *Engine) NewSession(cfg vad.Config) (vad.SessionHandle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	floor := DefaultFloors[cfg.Mode]
	if e.hasFloor {
		floor = e.floor
	}
	if floor > 0 {
		return nil, fmt.Errorf("energy: floor %.1f dBFS above full scale: %w", floor, audio.ErrInvalidArgument)
	}
	return &session{cfg: cfg, floor: floor}, nil
}

type session struct {
	cfg    vad.Config
	floor  float64
	closed bool
}

func (s *session) IsVoiced(frame []byte) (bool, error) {
	if s.closed {
		return false, vad.ErrClosed
	}
	if err := vad.CheckFrame(s.cfg, frame); err != nil {
		return false, err
	}
	return LevelDBFS(frame) > s.floor, nil
}

func (s *session) Reset() {}

func (s *session) Close() error {
	s.closed = true
	return nil
}

// LevelDBFS returns the RMS level of 16-bit PCM relative to full scale.
// Digital silence yields -Inf.
func LevelDBFS(pcm []byte) float64 {
	n := len(pcm) / audio.SampleWidth
	if n == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for i := range n {
		v := float64(int16(pcm[i*2])|int16(pcm[i*2+1])<<8) / 32768.0
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(n))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}
