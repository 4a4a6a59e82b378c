//go:build !cgo

package webrtc

import "github.com/MrWong99/vadsplit/pkg/provider/vad"

const available = false

type session struct{}

func newSession(vad.Config) (*session, error) { return nil, ErrUnavailable }

func (s *session) IsVoiced([]byte) (bool, error) { return false, ErrUnavailable }
func (s *session) Reset()                        {}
func (s *session) Close() error                  { return nil }
