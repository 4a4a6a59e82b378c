// Package mock provides test doubles for the vad package interfaces.
//
// Use Engine to verify that sessions are created with the expected Config.
// Use Session to script per-frame verdicts and inspect the frames that were
// submitted for classification.
//
// Example:
//
//	sess := &mock.Session{Verdicts: []bool{false, true, true}}
//	eng := &mock.Engine{Session: sess}
//	handle, _ := eng.NewSession(cfg)
package mock

import (
	"sync"

	"github.com/MrWong99/vadsplit/pkg/provider/vad"
)

// NewSessionCall records a single invocation of Engine.NewSession.
type NewSessionCall struct {
	// Cfg is the Config passed to NewSession.
	Cfg vad.Config
}

// Engine is a mock implementation of vad.Engine.
type Engine struct {
	mu sync.Mutex

	// Session is the SessionHandle returned by NewSession. If nil, NewSession
	// returns the result of NewFunc, or a new default Session.
	Session vad.SessionHandle

	// NewFunc, if set and Session is nil, builds a fresh session per call.
	NewFunc func(cfg vad.Config) vad.SessionHandle

	// NewSessionErr, if non-nil, is returned as the error from NewSession.
	NewSessionErr error

	// NewSessionCalls records every call to NewSession in order.
	NewSessionCalls []NewSessionCall
}

// NewSession records the call and returns Session, NewSessionErr.
func (e *Engine) NewSession(cfg vad.Config) (vad.SessionHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.NewSessionCalls = append(e.NewSessionCalls, NewSessionCall{Cfg: cfg})
	if e.NewSessionErr != nil {
		return nil, e.NewSessionErr
	}
	if e.Session != nil {
		return e.Session, nil
	}
	if e.NewFunc != nil {
		return e.NewFunc(cfg), nil
	}
	return &Session{}, nil
}

// Calls returns a copy of the recorded NewSession calls. Thread-safe.
func (e *Engine) Calls() []NewSessionCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]NewSessionCall, len(e.NewSessionCalls))
	copy(out, e.NewSessionCalls)
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.NewSessionCalls = nil
}

// Ensure Engine implements vad.Engine at compile time.
var _ vad.Engine = (*Engine)(nil)

// IsVoicedCall records a single invocation of Session.IsVoiced.
type IsVoicedCall struct {
	// Frame is a copy of the bytes passed to IsVoiced.
	Frame []byte
}

// Session is a mock implementation of vad.SessionHandle.
type Session struct {
	mu sync.Mutex

	// Verdicts scripts the result of successive IsVoiced calls. The n-th call
	// returns Verdicts[n]; calls past the end return Default.
	Verdicts []bool

	// Default is returned once Verdicts is exhausted.
	Default bool

	// Classify, if set, takes precedence over Verdicts and decides each frame.
	Classify func(frame []byte) bool

	// WarmUp makes the first WarmUp calls after creation or Reset return true
	// regardless of the script, imitating a detector with warm-up bias.
	WarmUp int

	// IsVoicedErr, if non-nil, is returned by every IsVoiced call.
	IsVoicedErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	// IsVoicedCalls records every call to IsVoiced in order.
	IsVoicedCalls []IsVoicedCall

	// ResetCallCount is the number of times Reset was called.
	ResetCallCount int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int

	sinceReset int
}

// IsVoiced records the call and returns the scripted verdict.
func (s *Session) IsVoiced(frame []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(frame))
	copy(cp, frame)
	s.IsVoicedCalls = append(s.IsVoicedCalls, IsVoicedCall{Frame: cp})
	if s.IsVoicedErr != nil {
		return false, s.IsVoicedErr
	}
	n := s.sinceReset
	s.sinceReset++
	if n < s.WarmUp {
		return true, nil
	}
	if s.Classify != nil {
		return s.Classify(frame), nil
	}
	if n < len(s.Verdicts) {
		return s.Verdicts[n], nil
	}
	return s.Default, nil
}

// Reset records the call and restarts the script and warm-up window.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResetCallCount++
	s.sinceReset = 0
}

// Close records the call and returns CloseErr.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return s.CloseErr
}

// Closed reports whether Close has been called at least once. Thread-safe.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CloseCallCount > 0
}

// ResetCalls clears all recorded call history. Thread-safe.
func (s *Session) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.IsVoicedCalls = nil
	s.ResetCallCount = 0
	s.CloseCallCount = 0
	s.sinceReset = 0
}

// Ensure Session implements vad.SessionHandle at compile time.
var _ vad.SessionHandle = (*Session)(nil)
