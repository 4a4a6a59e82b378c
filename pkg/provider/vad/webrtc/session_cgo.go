//go:build cgo

package webrtc

import (
	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"github.com/MrWong99/vadsplit/pkg/provider/vad"
)

const available = true

type session struct {
	cfg    vad.Config
	vad    *webrtcvad.VAD
	closed bool
}

func newSession(cfg vad.Config) (*session, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := v.SetMode(cfg.Mode); err != nil {
		return nil, err
	}
	return &session{cfg: cfg, vad: v}, nil
}

func (s *session) IsVoiced(frame []byte) (bool, error) {
	if s.closed {
		return false, vad.ErrClosed
	}
	if err := vad.CheckFrame(s.cfg, frame); err != nil {
		return false, err
	}
	return s.vad.Process(s.cfg.SampleRate, frame)
}

// Reset replaces the detector with a fresh instance; the binding exposes no
// in-place reset.
func (s *session) Reset() {
	if s.closed {
		return
	}
	if v, err := newSession(s.cfg); err == nil {
		s.vad = v.vad
	}
}

func (s *session) Close() error {
	s.closed = true
	s.vad = nil
	return nil
}
