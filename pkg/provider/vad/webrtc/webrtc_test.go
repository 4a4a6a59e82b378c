package webrtc_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/vadsplit/pkg/audio"
	"github.com/MrWong99/vadsplit/pkg/provider/vad"
	"github.com/MrWong99/vadsplit/pkg/provider/vad/webrtc"
)

func TestNewSession_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  vad.Config
	}{
		{"rate", vad.Config{SampleRate: 44100, FrameSizeMs: 10, Mode: 3}},
		{"frame", vad.Config{SampleRate: 16000, FrameSizeMs: 15, Mode: 3}},
		{"mode high", vad.Config{SampleRate: 16000, FrameSizeMs: 10, Mode: 4}},
		{"mode negative", vad.Config{SampleRate: 16000, FrameSizeMs: 10, Mode: -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := webrtc.New().NewSession(tc.cfg)
			if !errors.Is(err, audio.ErrInvalidArgument) {
				t.Errorf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestNewSession_Availability(t *testing.T) {
	t.Parallel()

	sess, err := webrtc.New().NewSession(vad.Config{SampleRate: 16000, FrameSizeMs: 10, Mode: 3})
	if !webrtc.Available() {
		if !errors.Is(err, webrtc.ErrUnavailable) {
			t.Fatalf("err = %v, want ErrUnavailable", err)
		}
		return
	}
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer sess.Close()

	if _, err := sess.IsVoiced(make([]byte, 100)); !errors.Is(err, audio.ErrInvalidArgument) {
		t.Errorf("short frame err = %v, want ErrInvalidArgument", err)
	}
	if err := sess.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if _, err := sess.IsVoiced(make([]byte, 320)); !errors.Is(err, vad.ErrClosed) {
		t.Errorf("after Close err = %v, want ErrClosed", err)
	}
}
