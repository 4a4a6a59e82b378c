package segment

import (
	"math"
	"testing"

	"github.com/MrWong99/vadsplit/pkg/audio"
)

func TestWindowCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, frameLen, shift, want int
	}{
		{0, 160, 80, 0},
		{1, 160, 80, 1},
		{160, 160, 80, 1},
		{161, 160, 80, 2},
		{240, 160, 80, 2},
		{241, 160, 80, 3},
		{16000, 160, 80, 199},
	}
	for _, tc := range tests {
		if got := windowCount(tc.n, tc.frameLen, tc.shift); got != tc.want {
			t.Errorf("windowCount(%d, %d, %d) = %d, want %d", tc.n, tc.frameLen, tc.shift, got, tc.want)
		}
	}
}

func TestComputeFeatures(t *testing.T) {
	t.Parallel()

	// Four samples per window, shift two. Second half alternates.
	samples := []float64{0.5, 0.5, 0.5, 0.5, 0.25, -0.25, 0.25, -0.25}
	f := ComputeFeatures(samples, 4)
	if f.Shift != 2 || len(f.RMS) != 3 {
		t.Fatalf("shift %d, windows %d; want 2, 3", f.Shift, len(f.RMS))
	}
	wantRMS := []float64{1, math.Sqrt((0.25+0.25+0.0625+0.0625)/4) / 0.5, 0.5}
	wantZCR := []float64{0, 1.0 / 3, 1}
	for k := range 3 {
		if math.Abs(f.RMS[k]-wantRMS[k]) > 1e-9 {
			t.Errorf("RMS[%d] = %v, want %v", k, f.RMS[k], wantRMS[k])
		}
		if math.Abs(f.ZCR[k]-wantZCR[k]) > 1e-9 {
			t.Errorf("ZCR[%d] = %v, want %v", k, f.ZCR[k], wantZCR[k])
		}
	}
}

func TestComputeFeatures_Silence(t *testing.T) {
	t.Parallel()

	f := ComputeFeatures(make([]float64, 10), 4)
	for k, v := range f.RMS {
		if v != 0 {
			t.Errorf("RMS[%d] = %v, want 0", k, v)
		}
	}
	for k, a := range f.Active(DefaultRMSThreshold, DefaultZCRThreshold) {
		if a {
			t.Errorf("window %d active in silence", k)
		}
	}
}

func TestActiveRuns(t *testing.T) {
	t.Parallel()

	starts, ends := activeRuns([]bool{false, true, true, false, true, false, false, true, true, true})
	wantS, wantE := []int{1, 4, 7}, []int{2, 4, 9}
	if len(starts) != 3 || len(ends) != 3 {
		t.Fatalf("starts %v ends %v", starts, ends)
	}
	for i := range 3 {
		if starts[i] != wantS[i] || ends[i] != wantE[i] {
			t.Errorf("run %d = [%d, %d], want [%d, %d]", i, starts[i], ends[i], wantS[i], wantE[i])
		}
	}
	if s, e := activeRuns([]bool{false, false}); len(s) != 0 || len(e) != 0 {
		t.Errorf("no active windows: starts %v ends %v", s, e)
	}
}

func TestWindowRing(t *testing.T) {
	t.Parallel()

	w := newWindow(3)
	mk := func(i int) audio.Frame { return audio.Frame{Data: []byte{byte(i)}} }

	w.push(mk(0), true)
	w.push(mk(1), false)
	if w.full() {
		t.Fatal("window full after 2 of 3")
	}
	w.push(mk(2), true)
	w.push(mk(3), true) // evicts 0
	if !w.full() || w.count(true) != 2 || w.count(false) != 1 {
		t.Fatalf("full %v voiced %d unvoiced %d", w.full(), w.count(true), w.count(false))
	}
	got := w.drain()
	for i, f := range got {
		if f.Data[0] != byte(i+1) {
			t.Errorf("drain[%d] = frame %d, want %d", i, f.Data[0], i+1)
		}
	}
	if w.full() || w.count(true) != 0 || w.count(false) != 0 {
		t.Error("window not empty after drain")
	}
}
