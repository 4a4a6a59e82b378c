package segment

import (
	"fmt"

	"github.com/MrWong99/vadsplit/pkg/audio"
)

// Input is the audio accepted by [Segmenter.Filter]. It is either [PCM] or
// [Decoded]; no other implementations exist.
type Input interface {
	resolve(declaredRate int) ([]byte, int, error)
}

// PCM is raw little-endian 16-bit mono PCM. SampleRate may be left zero when
// the rate is supplied through [WithSampleRate].
type PCM struct {
	Data       []byte
	SampleRate int
}

func (p PCM) resolve(declared int) ([]byte, int, error) {
	rate := p.SampleRate
	switch {
	case rate == 0 && declared == 0:
		return nil, 0, fmt.Errorf("segment: raw PCM needs a sample rate: %w", ErrInvalidArgument)
	case rate == 0:
		rate = declared
	case declared != 0 && declared != rate:
		return nil, 0, fmt.Errorf("segment: declared sample rate %d conflicts with PCM rate %d: %w", declared, rate, ErrInvalidArgument)
	}
	return p.Data, rate, nil
}

// Decoded is a clip produced by an audio source. It must already be mono
// 16-bit PCM.
type Decoded audio.Clip

func (d Decoded) resolve(declared int) ([]byte, int, error) {
	if d.SampleWidth != audio.SampleWidth {
		return nil, 0, fmt.Errorf("segment: sample width %d bytes, want %d: %w", d.SampleWidth, audio.SampleWidth, ErrInvalidArgument)
	}
	if d.Channels != 1 {
		return nil, 0, fmt.Errorf("segment: %d channels, want mono: %w", d.Channels, ErrInvalidArgument)
	}
	if d.SampleRate <= 0 {
		return nil, 0, fmt.Errorf("segment: clip sample rate %d: %w", d.SampleRate, ErrInvalidArgument)
	}
	if declared != 0 && declared != d.SampleRate {
		return nil, 0, fmt.Errorf("segment: declared sample rate %d conflicts with clip rate %d: %w", declared, d.SampleRate, ErrInvalidArgument)
	}
	return d.Data, d.SampleRate, nil
}
