package segment

import "math"

// Features holds per-window energy features over a sample sequence. Window k
// covers samples [k*Shift, k*Shift+Len); windows running past the end are
// zero-padded.
type Features struct {
	Len   int
	Shift int

	// RMS is the root-mean-square amplitude per window, scaled so the loudest
	// window is 1. All zero when the input is silent.
	RMS []float64

	// ZCR is the fraction of adjacent sample pairs per window whose product is
	// negative.
	ZCR []float64
}

// windowCount returns 1 + ceil(max(n-frameLen, 0) / shift) for n > 0.
func windowCount(n, frameLen, shift int) int {
	if n <= 0 {
		return 0
	}
	rest := max(n-frameLen, 0)
	return 1 + (rest+shift-1)/shift
}

// ComputeFeatures computes RMS and ZCR over half-overlapping windows of
// frameLen samples. frameLen must be at least 2.
func ComputeFeatures(samples []float64, frameLen int) Features {
	shift := max(frameLen/2, 1)
	count := windowCount(len(samples), frameLen, shift)
	f := Features{
		Len:   frameLen,
		Shift: shift,
		RMS:   make([]float64, count),
		ZCR:   make([]float64, count),
	}

	at := func(i int) float64 {
		if i < len(samples) {
			return samples[i]
		}
		return 0
	}

	var peak float64
	for k := range count {
		start := k * shift
		var sum float64
		crossings := 0
		prev := at(start)
		sum += prev * prev
		for i := start + 1; i < start+frameLen; i++ {
			x := at(i)
			sum += x * x
			if prev*x < 0 {
				crossings++
			}
			prev = x
		}
		rms := math.Sqrt(sum / float64(frameLen))
		f.RMS[k] = rms
		f.ZCR[k] = float64(crossings) / float64(frameLen-1)
		peak = max(peak, rms)
	}
	if peak > 0 {
		for k := range f.RMS {
			f.RMS[k] /= peak
		}
	}
	return f
}

// Active reports, per window, whether rms > thrRMS or zcr > thrZCR.
func (f Features) Active(thrRMS, thrZCR float64) []bool {
	out := make([]bool, len(f.RMS))
	for k := range out {
		out[k] = f.RMS[k] > thrRMS || f.ZCR[k] > thrZCR
	}
	return out
}
