package segment_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/vadsplit/pkg/segment"
)

func TestRough_TrailingSingleWindowDropped(t *testing.T) {
	t.Parallel()

	// 1600 samples at 16 kHz, 10 ms windows (160 samples, shift 80): the
	// click on the last 10 samples falls only in the final window.
	samples := make([]float64, 1600)
	for i := 1590; i < 1600; i++ {
		samples[i] = 1
	}

	var dropped []segment.Span
	s, err := newSegmenterForRough(t).Filter(t.Context(), pcmFromFloats(t, samples, 16000),
		segment.WithDroppedRunHook(func(sp segment.Span) { dropped = append(dropped, sp) }),
	)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	assertSpans(t, s, []segment.Span{{Start: 0, End: 0.10}})
	if len(dropped) != 1 || dropped[0].Start != 0.09 {
		t.Errorf("dropped = %v, want one run at 0.09", dropped)
	}

	spans, err := segment.Rough(samples, 16000, 10, segment.DefaultRMSThreshold, segment.DefaultZCRThreshold)
	if err != nil {
		t.Fatalf("Rough: %v", err)
	}
	assertSpans(t, spans, []segment.Span{{Start: 0, End: 0.10}})
}

func TestRough_ZeroCrossingsAlone(t *testing.T) {
	t.Parallel()

	// A quiet alternating stretch inside a constant signal. RMS is disabled
	// by an unreachable threshold, so only ZCR can mark windows active.
	samples := make([]float64, 3200)
	for i := range samples {
		samples[i] = 1
	}
	for i := 1600; i < 2400; i++ {
		if i%2 == 0 {
			samples[i] = 0.01
		} else {
			samples[i] = -0.01
		}
	}
	spans, err := segment.Rough(samples, 16000, 10, 2, 0.5)
	if err != nil {
		t.Fatalf("Rough: %v", err)
	}
	var active []segment.Span
	for _, sp := range spans {
		if sp.Active {
			active = append(active, sp)
		}
	}
	if len(active) != 1 {
		t.Fatalf("spans = %v, want one active span", spans)
	}
	if active[0].Start < 0.09 || active[0].End > 0.15 {
		t.Errorf("active span %v outside the alternating region", active[0])
	}
}

func TestRough_AllActive(t *testing.T) {
	t.Parallel()

	samples := make([]float64, 1600)
	for i := range samples {
		samples[i] = 0.5
	}
	spans, err := segment.Rough(samples, 16000, 10, 0.1, 0.5)
	if err != nil {
		t.Fatalf("Rough: %v", err)
	}
	// Windows 0..18 are active; the run ends at the start of window 18.
	assertSpans(t, spans, []segment.Span{
		{Start: 0, End: 0.09, Active: true},
		{Start: 0.09, End: 0.10},
	})
}

func TestRough_Validation(t *testing.T) {
	t.Parallel()

	samples := make([]float64, 100)
	tests := []struct {
		name       string
		sampleRate int
		frameMs    int
		rms, zcr   float64
	}{
		{"no rate", 0, 10, 0.1, 0.5},
		{"window too short", 100, 10, 0.1, 0.5},
		{"negative rms", 16000, 10, -1, 0.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := segment.Rough(samples, tc.sampleRate, tc.frameMs, tc.rms, tc.zcr)
			if !errors.Is(err, segment.ErrInvalidArgument) {
				t.Errorf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}
