package config

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/MrWong99/vadsplit/pkg/audio"
	"github.com/MrWong99/vadsplit/pkg/provider/vad"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Decoder reads an encoded audio stream and returns mono 16-bit PCM at
// targetRate (or an aligned rate when zero) along with the stream's own
// sample rate.
type Decoder func(r io.ReadSeeker, targetRate int) (audio.Clip, int, error)

// Registry maps engine names to classifier factories and audio formats to
// decoders. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	vad      map[string]func(VADConfig) (vad.Engine, error)
	decoders map[string]Decoder
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		vad:      make(map[string]func(VADConfig) (vad.Engine, error)),
		decoders: make(map[string]Decoder),
	}
}

// RegisterVAD registers a VAD engine factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterVAD(name string, factory func(VADConfig) (vad.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vad[name] = factory
}

// RegisterDecoder registers dec for the audio format name ("wav", "mp3").
// The name doubles as the file extension without the dot.
func (r *Registry) RegisterDecoder(format string, dec Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[strings.ToLower(format)] = dec
}

// CreateVAD instantiates a VAD engine using the factory registered under
// cfg.Engine. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateVAD(cfg VADConfig) (vad.Engine, error) {
	r.mu.RLock()
	factory, ok := r.vad[cfg.Engine]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: vad/%q", ErrProviderNotRegistered, cfg.Engine)
	}
	return factory(cfg)
}

// Decoder returns the decoder registered for format.
func (r *Registry) Decoder(format string) (Decoder, error) {
	r.mu.RLock()
	dec, ok := r.decoders[strings.ToLower(format)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: decoder/%q", ErrProviderNotRegistered, format)
	}
	return dec, nil
}

// DecoderForPath picks a decoder from the extension of path.
func (r *Registry) DecoderForPath(path string) (Decoder, error) {
	return r.Decoder(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Formats returns the registered decoder format names in sorted order.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.decoders))
	for k := range r.decoders {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// OptFloat returns opts[key] as a float64. YAML integers are accepted.
func OptFloat(opts map[string]any, key string) (float64, bool) {
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
