// Package webrtc provides a vad.Engine backed by the WebRTC voice activity
// detector (github.com/maxhawkins/go-webrtcvad). The detector is a cgo binding;
// builds with CGO_ENABLED=0 compile a stub whose sessions fail with
// [ErrUnavailable].
//
// The WebRTC detector adapts its noise estimate to the frames it has seen, so
// every stream must get its own session.
package webrtc

import (
	"errors"
	"fmt"

	"github.com/MrWong99/vadsplit/pkg/provider/vad"
)

// ErrUnavailable is returned by NewSession when the binary was built without
// cgo.
var ErrUnavailable = errors.New("webrtc: detector unavailable in this build (requires cgo)")

// Compile-time assertion that Engine satisfies vad.Engine.
var _ vad.Engine = (*Engine)(nil)

// Engine creates WebRTC VAD sessions. The zero value is ready to use and is
// safe for concurrent NewSession calls.
type Engine struct{}

// New returns a WebRTC engine.
func New() *Engine { return &Engine{} }

// Available reports whether the detector was compiled into this binary.
func Available() bool { return available }

// NewSession validates cfg and allocates a detector instance set to cfg.Mode.
func (e *Engine) NewSession(cfg vad.Config) (vad.SessionHandle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := newSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("webrtc: new session: %w", err)
	}
	return s, nil
}
