package segment

import "fmt"

// Assemble normalises a span sequence: boundaries are rounded to two
// decimals, zero-width spans are dropped and neighbours sharing a state are
// merged. The result must start at 0, end at total (rounded) and be
// contiguous; otherwise ErrDegenerateSegments is returned. An empty sequence
// is valid only when total rounds to 0.
func Assemble(spans []Span, total float64) ([]Span, error) {
	want := round2(total)
	out := make([]Span, 0, len(spans))
	for _, s := range spans {
		s.Start, s.End = round2(s.Start), round2(s.End)
		if s.End == s.Start {
			continue
		}
		if s.End < s.Start {
			return nil, fmt.Errorf("segment: span %v ends before it starts: %w", s, ErrDegenerateSegments)
		}
		if n := len(out); n > 0 && out[n-1].Active == s.Active && out[n-1].End == s.Start {
			out[n-1].End = s.End
			continue
		}
		out = append(out, s)
	}

	if len(out) == 0 {
		if want != 0 {
			return nil, fmt.Errorf("segment: no spans cover %.2fs: %w", want, ErrDegenerateSegments)
		}
		return out, nil
	}
	if out[0].Start != 0 {
		return nil, fmt.Errorf("segment: first span starts at %.2f: %w", out[0].Start, ErrDegenerateSegments)
	}
	for i := 1; i < len(out); i++ {
		if out[i].Start != out[i-1].End {
			return nil, fmt.Errorf("segment: gap between %v and %v: %w", out[i-1], out[i], ErrDegenerateSegments)
		}
		if out[i].Active == out[i-1].Active {
			return nil, fmt.Errorf("segment: adjacent spans %v and %v share a state: %w", out[i-1], out[i], ErrDegenerateSegments)
		}
	}
	if last := out[len(out)-1].End; last != want {
		return nil, fmt.Errorf("segment: last span ends at %.2f, want %.2f: %w", last, want, ErrDegenerateSegments)
	}
	return out, nil
}
