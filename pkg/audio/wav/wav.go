// Package wav reads and writes RIFF/WAVE files for the segmenter using
// github.com/go-audio/wav.
//
// Reading returns mono 16-bit PCM at a rate the frame classifier supports,
// along with the rate stored in the file so that split segments can be
// written back at the original rate.
package wav

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/MrWong99/vadsplit/pkg/audio"
)

// pcmFormat is the WAVE format tag for integer PCM.
const pcmFormat = 1

// Decode reads a whole WAV stream and requantises it to 16-bit little-endian
// PCM. Channel count and sample rate are kept as stored.
func Decode(r io.ReadSeeker) (audio.Clip, error) {
	dec := gowav.NewDecoder(r)
	if !dec.IsValidFile() {
		return audio.Clip{}, fmt.Errorf("wav: not a valid WAV stream: %w", audio.ErrInvalidArgument)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return audio.Clip{}, fmt.Errorf("wav: read PCM: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return audio.Clip{}, fmt.Errorf("wav: missing format chunk: %w", audio.ErrInvalidArgument)
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	pcm := make([]byte, len(buf.Data)*audio.SampleWidth)
	for i, v := range buf.Data {
		s, err := to16(v, depth)
		if err != nil {
			return audio.Clip{}, err
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return audio.Clip{
		Data:        pcm,
		SampleRate:  buf.Format.SampleRate,
		SampleWidth: audio.SampleWidth,
		Channels:    buf.Format.NumChannels,
	}, nil
}

// to16 rescales a decoded integer sample of the given bit depth to int16.
// 8-bit WAV samples are unsigned.
func to16(v, depth int) (int16, error) {
	switch depth {
	case 8:
		return int16((v - 128) << 8), nil
	case 16:
		return int16(v), nil
	case 24:
		return int16(v >> 8), nil
	case 32:
		return int16(v >> 16), nil
	default:
		return 0, fmt.Errorf("wav: unsupported bit depth %d: %w", depth, audio.ErrInvalidArgument)
	}
}

// Load decodes r and converts it to mono 16-bit PCM. When targetRate is zero
// the stored rate is kept if supported and aligned otherwise. The second
// return value is the stored sample rate.
func Load(r io.ReadSeeker, targetRate int) (audio.Clip, int, error) {
	raw, err := Decode(r)
	if err != nil {
		return audio.Clip{}, 0, err
	}
	conv := audio.Converter{TargetRate: targetRate}
	clip, err := conv.Convert(raw)
	if err != nil {
		return audio.Clip{}, 0, fmt.Errorf("wav: %w", err)
	}
	return clip, raw.SampleRate, nil
}

// Read opens and loads the WAV file at path. See [Load].
func Read(path string, targetRate int) (audio.Clip, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return audio.Clip{}, 0, fmt.Errorf("wav: open %q: %w", path, err)
	}
	defer f.Close()
	return Load(f, targetRate)
}

// Encode writes mono 16-bit PCM as a WAV stream.
func Encode(w io.WriteSeeker, pcm []byte, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("wav: sample rate %d: %w", sampleRate, audio.ErrInvalidArgument)
	}
	if len(pcm)%audio.SampleWidth != 0 {
		return fmt.Errorf("wav: odd byte count %d for 16-bit PCM: %w", len(pcm), audio.ErrInvalidArgument)
	}
	data := make([]int, len(pcm)/audio.SampleWidth)
	for i := range data {
		data[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	enc := gowav.NewEncoder(w, sampleRate, 16, 1, pcmFormat)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: close encoder: %w", err)
	}
	return nil
}

// Write stores mono 16-bit PCM at path. When desiredRate is non-zero and
// differs from sampleRate the audio is resampled first.
func Write(path string, pcm []byte, sampleRate, desiredRate int) error {
	if desiredRate != 0 && desiredRate != sampleRate {
		pcm = audio.ResampleMono16(pcm, sampleRate, desiredRate)
		sampleRate = desiredRate
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wav: create %q: %w", path, err)
	}
	if err := Encode(f, pcm, sampleRate); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("wav: close %q: %w", path, err)
	}
	return nil
}

// WriteFrames stores the concatenated frames at path. All frames must share
// one sample rate.
func WriteFrames(path string, frames []audio.Frame, desiredRate int) error {
	if len(frames) == 0 {
		return fmt.Errorf("wav: no frames to write: %w", audio.ErrInvalidArgument)
	}
	rate := frameRate(frames[0])
	for i, f := range frames[1:] {
		if r := frameRate(f); r != rate {
			return fmt.Errorf("wav: frame %d has sample rate %d, want %d: %w", i+1, r, rate, audio.ErrInconsistentFrames)
		}
	}
	return Write(path, audio.JoinFrames(frames), rate, desiredRate)
}

func frameRate(f audio.Frame) int {
	if f.SampleRate != 0 {
		return f.SampleRate
	}
	return f.ImpliedSampleRate()
}
