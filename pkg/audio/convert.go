package audio

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
)

// Converter brings decoded clips to mono 16-bit PCM at a supported sample
// rate. It logs a warning on the first format mismatch. Create one per source;
// not designed for shared use across goroutines.
type Converter struct {
	// TargetRate forces the output sample rate. When zero the source rate is
	// kept if supported and aligned with [AlignSampleRate] otherwise.
	TargetRate int

	warnedMismatch sync.Once
}

// Convert converts c to mono 16-bit PCM. Conversion order: downmix first,
// then resample (avoids resampling channels that are about to be dropped).
// Only 16-bit input is accepted; decoders are expected to requantise first.
func (cv *Converter) Convert(c Clip) (Clip, error) {
	if c.SampleWidth != SampleWidth {
		return Clip{}, fmt.Errorf("audio: sample width %d bytes, want %d: %w", c.SampleWidth, SampleWidth, ErrInvalidArgument)
	}
	if c.Channels <= 0 {
		return Clip{}, fmt.Errorf("audio: channel count %d: %w", c.Channels, ErrInvalidArgument)
	}
	if c.SampleRate <= 0 {
		return Clip{}, fmt.Errorf("audio: sample rate %d: %w", c.SampleRate, ErrInvalidArgument)
	}

	target := cv.TargetRate
	if target == 0 {
		target = TargetSampleRate(c.SampleRate)
	}

	// Fast path: source matches target.
	if c.Channels == 1 && c.SampleRate == target {
		return c, nil
	}

	cv.warnedMismatch.Do(func() {
		slog.Warn("audio format mismatch: converting",
			"from", formatString(c.SampleRate, c.Channels),
			"to", formatString(target, 1),
		)
	})

	pcm := c.Data
	if c.Channels != 1 {
		pcm = DownmixMono16(pcm, c.Channels)
	}
	if c.SampleRate != target {
		pcm = ResampleMono16(pcm, c.SampleRate, target)
	}

	return Clip{
		Data:        pcm,
		SampleRate:  target,
		SampleWidth: SampleWidth,
		Channels:    1,
	}, nil
}

// DownmixMono16 averages the interleaved channels of 16-bit PCM into a single
// mono channel. Uses int32 arithmetic to prevent overflow and clamps to the
// int16 range. Trailing bytes that do not form a whole frame are dropped.
func DownmixMono16(pcm []byte, channels int) []byte {
	if channels <= 1 {
		return pcm
	}
	stride := channels * SampleWidth
	frames := len(pcm) / stride
	out := make([]byte, frames*SampleWidth)
	for i := range frames {
		var sum int32
		for ch := range channels {
			off := i*stride + ch*SampleWidth
			sum += int32(int16(pcm[off]) | int16(pcm[off+1])<<8)
		}
		avg := sum / int32(channels)

		// Clamp to int16 range.
		if avg > 32767 {
			avg = 32767
		} else if avg < -32768 {
			avg = -32768
		}

		out[i*2] = byte(avg)
		out[i*2+1] = byte(avg >> 8)
	}
	return out
}

// ResampleMono16 resamples 16-bit mono PCM from srcRate to dstRate using linear
// interpolation. The input must be little-endian int16 samples. If srcRate ==
// dstRate, the input is returned unchanged.
func ResampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 {
		return pcm
	}
	if srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := int16(pcm[srcIdx*2]) | int16(pcm[srcIdx*2+1])<<8
		var s1 int16
		if srcIdx+1 < srcSamples {
			s1 = int16(pcm[(srcIdx+1)*2]) | int16(pcm[(srcIdx+1)*2+1])<<8
		} else {
			s1 = s0
		}

		interpolated := int16(float64(s0)*(1-frac) + float64(s1)*frac)
		out[i*2] = byte(interpolated)
		out[i*2+1] = byte(interpolated >> 8)
	}
	return out
}

// PCM16ToFloat64 decodes little-endian int16 PCM into float64 samples scaled
// to [-1, 1) by full scale (32768).
func PCM16ToFloat64(pcm []byte) []float64 {
	out := make([]float64, len(pcm)/2)
	for i := range out {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float64(s) / 32768.0
	}
	return out
}

// NormalizePeak scales samples in place so that the largest absolute value is
// 1. Silent input (all zeros) is left untouched.
func NormalizePeak(samples []float64) {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return
	}
	for i := range samples {
		samples[i] /= peak
	}
}

// formatString returns a human-readable string for a sample rate and channel count,
// e.g. "48000Hz stereo".
func formatString(rate, channels int) string {
	ch := "mono"
	if channels == 2 {
		ch = "stereo"
	} else if channels > 2 {
		ch = fmt.Sprintf("%dch", channels)
	}
	return fmt.Sprintf("%dHz %s", rate, ch)
}
