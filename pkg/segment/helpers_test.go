package segment_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/MrWong99/vadsplit/pkg/provider/vad/energy"
	"github.com/MrWong99/vadsplit/pkg/segment"
)

// tonePCM returns n samples of 16-bit PCM holding a sine of the given
// frequency and amplitude (0..1) on [from, to) and silence elsewhere.
func tonePCM(t *testing.T, n, sampleRate int, freq, amp float64, from, to int) []byte {
	t.Helper()
	buf := make([]byte, n*2)
	for i := from; i < to && i < n; i++ {
		v := amp * math.Sin(2*math.Pi*freq*float64(i-from)/float64(sampleRate))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v*32767)))
	}
	return buf
}

// voicedScript returns n verdicts that are true on [from, to].
func voicedScript(n, from, to int) []bool {
	out := make([]bool, n)
	for i := from; i <= to && i < n; i++ {
		out[i] = true
	}
	return out
}

// assertSpans fails the test unless got equals want exactly.
func assertSpans(t *testing.T, got, want []segment.Span) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d spans %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("span %d = %v, want %v", i, got[i], want[i])
		}
	}
}

// assertCoverage checks the invariants every Filter result must satisfy.
func assertCoverage(t *testing.T, spans []segment.Span, total float64) {
	t.Helper()
	if len(spans) == 0 {
		t.Fatal("no spans")
	}
	if spans[0].Start != 0 {
		t.Errorf("first span starts at %v", spans[0].Start)
	}
	if last := spans[len(spans)-1].End; last != math.Round(total*100)/100 {
		t.Errorf("last span ends at %v, want %v", last, total)
	}
	for i := 1; i < len(spans); i++ {
		if spans[i].Start != spans[i-1].End {
			t.Errorf("gap between %v and %v", spans[i-1], spans[i])
		}
		if spans[i].Active == spans[i-1].Active {
			t.Errorf("adjacent spans %v and %v share a state", spans[i-1], spans[i])
		}
	}
}

// pcmFromFloats quantises samples in [-1, 1] to 16-bit PCM input.
func pcmFromFloats(t *testing.T, samples []float64, sampleRate int) segment.PCM {
	t.Helper()
	buf := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v*32767)))
	}
	return segment.PCM{Data: buf, SampleRate: sampleRate}
}

func newSegmenterForRough(t *testing.T) *segment.Segmenter {
	t.Helper()
	s, err := segment.New(energy.New(), int(segment.ModeRough))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}
