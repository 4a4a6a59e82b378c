package audio

import (
	"fmt"
	"slices"
	"time"
)

// SupportedSampleRates lists the sample rates accepted by the frame extractor
// and the WebRTC classifier.
var SupportedSampleRates = []int{8000, 16000, 32000, 48000}

// SupportedFrameDurations lists the accepted frame durations in milliseconds.
var SupportedFrameDurations = []int{10, 20, 30}

// IsSupportedSampleRate reports whether rate is one of [SupportedSampleRates].
func IsSupportedSampleRate(rate int) bool {
	return slices.Contains(SupportedSampleRates, rate)
}

// IsSupportedFrameDuration reports whether ms is one of [SupportedFrameDurations].
func IsSupportedFrameDuration(ms int) bool {
	return slices.Contains(SupportedFrameDurations, ms)
}

// FrameWidth returns the byte width of one frame of 16-bit mono PCM.
func FrameWidth(sampleRate, frameMs int) int {
	return sampleRate * frameMs / 1000 * SampleWidth
}

// AlignSampleRate maps an arbitrary sample rate onto the supported set:
// above 48000 becomes 48000, strictly between 32000 and 48000 becomes 32000,
// strictly between 16000 and 32000 becomes 16000, and everything else 8000.
// Exact supported values other than 48000 fall through to 8000 as well, so
// callers should check [IsSupportedSampleRate] first.
func AlignSampleRate(rate int) int {
	switch {
	case rate > 48000:
		return 48000
	case rate > 32000 && rate < 48000:
		return 32000
	case rate > 16000 && rate < 32000:
		return 16000
	default:
		return 8000
	}
}

// TargetSampleRate returns rate unchanged when it is supported and the
// aligned rate otherwise.
func TargetSampleRate(rate int) int {
	if IsSupportedSampleRate(rate) {
		return rate
	}
	return AlignSampleRate(rate)
}

// SplitFrames slices 16-bit mono PCM into consecutive frames of frameMs
// milliseconds. A trailing partial frame is zero-padded to full width so that
// the reconstructed timeline keeps the trailing audio. Empty input yields no
// frames.
func SplitFrames(pcm []byte, sampleRate, frameMs int) ([]Frame, error) {
	if !IsSupportedSampleRate(sampleRate) {
		return nil, fmt.Errorf("audio: sample rate %d not in %v: %w", sampleRate, SupportedSampleRates, ErrInvalidArgument)
	}
	if !IsSupportedFrameDuration(frameMs) {
		return nil, fmt.Errorf("audio: frame duration %dms not in %v: %w", frameMs, SupportedFrameDurations, ErrInvalidArgument)
	}
	if len(pcm)%SampleWidth != 0 {
		return nil, fmt.Errorf("audio: odd byte count %d for 16-bit PCM: %w", len(pcm), ErrInvalidArgument)
	}

	width := FrameWidth(sampleRate, frameMs)
	duration := time.Duration(frameMs) * time.Millisecond
	frames := make([]Frame, 0, (len(pcm)+width-1)/width)

	for offset := 0; offset < len(pcm); offset += width {
		var data []byte
		if offset+width <= len(pcm) {
			data = pcm[offset : offset+width : offset+width]
		} else {
			data = make([]byte, width)
			copy(data, pcm[offset:])
		}
		frames = append(frames, Frame{
			Data:       data,
			SampleRate: sampleRate,
			Timestamp:  time.Duration(len(frames)) * duration,
			Duration:   duration,
		})
	}
	return frames, nil
}

// JoinFrames concatenates the PCM payload of frames in order.
func JoinFrames(frames []Frame) []byte {
	n := 0
	for _, f := range frames {
		n += len(f.Data)
	}
	out := make([]byte, 0, n)
	for _, f := range frames {
		out = append(out, f.Data...)
	}
	return out
}
