// Package mp3 decodes MPEG-1/2 Layer III audio for the segmenter using
// github.com/hajimehoshi/go-mp3.
package mp3

import (
	"fmt"
	"io"
	"os"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/MrWong99/vadsplit/pkg/audio"
)

// Decode reads a whole MP3 stream. The decoder always produces interleaved
// 16-bit stereo at the stream's sample rate.
func Decode(r io.Reader) (audio.Clip, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("mp3: %v: %w", err, audio.ErrInvalidArgument)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("mp3: decode: %w", err)
	}
	// Drop a torn trailing sample frame.
	pcm = pcm[:len(pcm)-len(pcm)%(2*audio.SampleWidth)]
	return audio.Clip{
		Data:        pcm,
		SampleRate:  dec.SampleRate(),
		SampleWidth: audio.SampleWidth,
		Channels:    2,
	}, nil
}

// Load decodes r and converts it to mono 16-bit PCM. When targetRate is zero
// the stream rate is kept if supported and aligned otherwise. The second
// return value is the stream's sample rate.
func Load(r io.Reader, targetRate int) (audio.Clip, int, error) {
	raw, err := Decode(r)
	if err != nil {
		return audio.Clip{}, 0, err
	}
	conv := audio.Converter{TargetRate: targetRate}
	clip, err := conv.Convert(raw)
	if err != nil {
		return audio.Clip{}, 0, fmt.Errorf("mp3: %w", err)
	}
	return clip, raw.SampleRate, nil
}

// Read opens and loads the MP3 file at path. See [Load].
func Read(path string, targetRate int) (audio.Clip, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return audio.Clip{}, 0, fmt.Errorf("mp3: open %q: %w", path, err)
	}
	defer f.Close()
	return Load(f, targetRate)
}
