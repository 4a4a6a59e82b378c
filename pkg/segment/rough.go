package segment

import (
	"fmt"
	"log/slog"
)

// Rough segments peak-normalised samples by per-window energy and zero
// crossing rate instead of a classifier. Windows are frameMs long and
// overlap by half. A window is active when its normalised RMS exceeds thrRMS
// or its ZCR exceeds thrZCR. Runs of consecutive active windows become active
// spans from the first window's start to the last window's start; the rest of
// [0, len(samples)/sampleRate] is filled with inactive spans.
//
// A trailing run made of a single window has zero width and is dropped with a
// warning.
func Rough(samples []float64, sampleRate, frameMs int, thrRMS, thrZCR float64) ([]Span, error) {
	return rough(samples, sampleRate, frameMs, thrRMS, thrZCR, nil)
}

func rough(samples []float64, sampleRate, frameMs int, thrRMS, thrZCR float64, onDrop func(Span)) ([]Span, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("segment: sample rate %d: %w", sampleRate, ErrInvalidArgument)
	}
	if thrRMS < 0 || thrZCR < 0 {
		return nil, fmt.Errorf("segment: negative rough threshold (rms %v, zcr %v): %w", thrRMS, thrZCR, ErrInvalidArgument)
	}
	frameLen := frameMs * sampleRate / 1000
	if frameLen < 2 {
		return nil, fmt.Errorf("segment: %dms window at %dHz holds %d samples, need at least 2: %w", frameMs, sampleRate, frameLen, ErrInvalidArgument)
	}
	if len(samples) == 0 {
		return nil, nil
	}

	feat := ComputeFeatures(samples, frameLen)
	starts, ends := activeRuns(feat.Active(thrRMS, thrZCR))
	if len(starts) != len(ends) {
		return nil, fmt.Errorf("segment: %d run starts but %d ends: %w", len(starts), len(ends), ErrDegenerateSegments)
	}

	rate := float64(sampleRate)
	toSec := func(idx int) float64 { return float64(idx*feat.Shift) / rate }

	if n := len(starts); n > 0 && starts[n-1] == ends[n-1] {
		dropped := Span{Start: round2(toSec(starts[n-1])), End: round2(toSec(ends[n-1])), Active: true}
		slog.Warn("segment: dropping single-window trailing run", "window", starts[n-1], "at", dropped.Start)
		if onDrop != nil {
			onDrop(dropped)
		}
		starts, ends = starts[:n-1], ends[:n-1]
	}

	total := float64(len(samples)) / rate
	spans := make([]Span, 0, 2*len(starts)+1)
	var cursor float64
	for i := range starts {
		s, e := toSec(starts[i]), toSec(ends[i])
		if s > cursor {
			spans = append(spans, Span{Start: cursor, End: s})
		}
		spans = append(spans, Span{Start: s, End: e, Active: true})
		cursor = e
	}
	if cursor < total {
		spans = append(spans, Span{Start: cursor, End: total})
	}
	for i := range spans {
		spans[i].Start, spans[i].End = round2(spans[i].Start), round2(spans[i].End)
	}
	return spans, nil
}

// activeRuns returns the first and last index of each run of consecutive
// true entries.
func activeRuns(active []bool) (starts, ends []int) {
	prev := -2
	for i, a := range active {
		if !a {
			continue
		}
		if i-prev != 1 {
			if len(starts) > 0 {
				ends = append(ends, prev)
			}
			starts = append(starts, i)
		}
		prev = i
	}
	if len(starts) > 0 {
		ends = append(ends, prev)
	}
	return starts, ends
}
