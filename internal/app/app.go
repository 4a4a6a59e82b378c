// Package app wires configuration, classifier engines, audio decoders and
// metrics into the operations exposed by the CLI and the HTTP server.
//
// An [App] holds segmentation defaults and one shared [vad.Engine]. Each call
// builds its own [segment.Segmenter], so App methods are safe for concurrent
// use. [App.Reload] swaps defaults and engine for calls started afterwards.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/vadsplit/internal/config"
	"github.com/MrWong99/vadsplit/internal/observe"
	"github.com/MrWong99/vadsplit/pkg/audio"
	"github.com/MrWong99/vadsplit/pkg/audio/wav"
	"github.com/MrWong99/vadsplit/pkg/provider/vad"
	"github.com/MrWong99/vadsplit/pkg/segment"
)

// Result is the segmentation of one audio input.
type Result struct {
	// Path is the input file, empty for uploaded streams.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// SampleRate is the rate the audio was analysed at.
	SampleRate int `json:"sample_rate" yaml:"sample_rate"`

	// SourceSampleRate is the rate stored in the input file.
	SourceSampleRate int `json:"source_sample_rate" yaml:"source_sample_rate"`

	// Duration of the analysed audio in seconds.
	Duration float64 `json:"duration" yaml:"duration"`

	Mode  string         `json:"mode" yaml:"mode"`
	Spans []segment.Span `json:"spans" yaml:"spans"`
}

// App runs segmentation jobs. Create with [New].
type App struct {
	registry *config.Registry
	metrics  *observe.Metrics

	mu             sync.RWMutex
	seg            config.SegmenterConfig
	vadCfg         config.VADConfig
	engine         vad.Engine
	keepSourceRate bool
}

// Option is a functional option for [New].
type Option func(*App)

// WithMetrics records to m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithEngine uses e instead of building the configured engine from the
// registry. Reload keeps e unless the engine config changes.
func WithEngine(e vad.Engine) Option {
	return func(a *App) { a.engine = e }
}

// New builds an App from cfg. The classifier engine named in cfg.VAD is
// created from reg unless one is injected with [WithEngine].
func New(cfg *config.Config, reg *config.Registry, opts ...Option) (*App, error) {
	if cfg == nil || reg == nil {
		return nil, errors.New("app: config and registry are required")
	}
	a := &App{
		registry:       reg,
		seg:            cfg.Segmenter,
		vadCfg:         cfg.VAD,
		keepSourceRate: cfg.Output.KeepSourceRate,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.engine == nil {
		eng, err := reg.CreateVAD(cfg.VAD)
		if err != nil {
			return nil, fmt.Errorf("app: create vad engine: %w", err)
		}
		a.engine = eng
	}
	return a, nil
}

// Defaults returns the current segmentation defaults.
func (a *App) Defaults() config.SegmenterConfig {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.seg
}

// Engine returns the current classifier engine.
func (a *App) Engine() vad.Engine {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.engine
}

// Reload applies the segmenter defaults, output settings and, when changed,
// the classifier engine from cfg. A failing engine factory leaves the App
// unchanged.
func (a *App) Reload(cfg *config.Config) error {
	a.mu.RLock()
	engineChanged := !cfg.VAD.Equal(a.vadCfg)
	a.mu.RUnlock()

	var eng vad.Engine
	if engineChanged {
		var err error
		if eng, err = a.registry.CreateVAD(cfg.VAD); err != nil {
			return fmt.Errorf("app: reload vad engine: %w", err)
		}
	}

	a.mu.Lock()
	a.seg = cfg.Segmenter
	a.keepSourceRate = cfg.Output.KeepSourceRate
	if eng != nil {
		a.engine = eng
		a.vadCfg = cfg.VAD
	}
	a.mu.Unlock()

	a.metrics.ConfigReloads.Add(context.Background(), 1)
	slog.Info("segmentation defaults reloaded",
		"mode", cfg.Segmenter.Mode,
		"engine_changed", engineChanged,
	)
	return nil
}

// Segment runs segmentation over clip with params. The clip must be mono
// 16-bit PCM.
func (a *App) Segment(ctx context.Context, clip audio.Clip, params config.SegmenterConfig) (_ []segment.Span, err error) {
	eng := a.Engine()
	mode := segment.Mode(params.Mode)

	ctx, span := observe.StartSpan(ctx, "segment.filter")
	span.SetAttributes(
		attribute.String("vadsplit.mode", mode.String()),
		attribute.Int("vadsplit.sample_rate", clip.SampleRate),
	)
	defer func() { observe.EndSpan(span, err) }()

	a.metrics.ActiveRequests.Add(ctx, 1)
	defer a.metrics.ActiveRequests.Add(ctx, -1)

	start := time.Now()
	var spans []segment.Span
	defer func() {
		a.metrics.RecordFilter(ctx, mode, time.Since(start), clip.Duration(), spans, err)
	}()

	s, err := segment.New(eng, params.Mode)
	if err != nil {
		return nil, err
	}
	spans, err = s.Filter(ctx, segment.Decoded(clip),
		segment.WithFrameDuration(params.FrameDurationMs),
		segment.WithPadding(params.PaddingDurationMs),
		segment.WithVoiceThreshold(params.ThresholdVoiceFrames),
		segment.WithRMSThreshold(params.ThresholdRMS),
		segment.WithZCRThreshold(params.ThresholdZCR),
		segment.WithDroppedRunHook(func(segment.Span) { a.metrics.RecordDroppedRun(ctx) }),
	)
	if err != nil {
		return nil, err
	}
	observe.Logger(ctx).Debug("segmented audio",
		"mode", mode.String(),
		"duration", clip.Duration(),
		"spans", len(spans),
	)
	return spans, nil
}

// Decode reads an encoded stream of the given format ("wav", "mp3").
func (a *App) Decode(r io.ReadSeeker, format string) (clip audio.Clip, sourceRate int, err error) {
	dec, err := a.registry.Decoder(format)
	if err != nil {
		return audio.Clip{}, 0, fmt.Errorf("app: %w", err)
	}
	clip, sourceRate, err = dec(r, 0)
	if err != nil {
		return audio.Clip{}, 0, fmt.Errorf("app: decode %s: %w", format, err)
	}
	return clip, sourceRate, nil
}

// SegmentReader decodes r as format and segments it with params.
func (a *App) SegmentReader(ctx context.Context, r io.ReadSeeker, format string, params config.SegmenterConfig) (Result, error) {
	clip, src, err := a.Decode(r, format)
	if err != nil {
		return Result{}, err
	}
	spans, err := a.Segment(ctx, clip, params)
	if err != nil {
		return Result{}, err
	}
	return Result{
		SampleRate:       clip.SampleRate,
		SourceSampleRate: src,
		Duration:         clip.Duration().Seconds(),
		Mode:             segment.Mode(params.Mode).String(),
		Spans:            spans,
	}, nil
}

// SegmentFile segments the audio file at path with the current defaults. The
// decoder is chosen by file extension.
func (a *App) SegmentFile(ctx context.Context, path string) (Result, error) {
	res, _, err := a.segmentFile(ctx, path, a.Defaults())
	return res, err
}

func (a *App) segmentFile(ctx context.Context, path string, params config.SegmenterConfig) (Result, audio.Clip, error) {
	dec, err := a.registry.DecoderForPath(path)
	if err != nil {
		return Result{}, audio.Clip{}, fmt.Errorf("app: %q: %w", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return Result{}, audio.Clip{}, fmt.Errorf("app: %w", err)
	}
	defer f.Close()

	clip, src, err := dec(f, 0)
	if err != nil {
		return Result{}, audio.Clip{}, fmt.Errorf("app: decode %q: %w", path, err)
	}
	spans, err := a.Segment(ctx, clip, params)
	if err != nil {
		return Result{}, audio.Clip{}, fmt.Errorf("app: segment %q: %w", path, err)
	}
	return Result{
		Path:             path,
		SampleRate:       clip.SampleRate,
		SourceSampleRate: src,
		Duration:         clip.Duration().Seconds(),
		Mode:             segment.Mode(params.Mode).String(),
		Spans:            spans,
	}, clip, nil
}

// SegmentFiles segments paths with at most jobs files in flight (jobs <= 0
// means one). Results keep the order of paths. The first failure cancels the
// remaining files and is returned.
func (a *App) SegmentFiles(ctx context.Context, paths []string, jobs int) ([]Result, error) {
	if jobs <= 0 {
		jobs = 1
	}
	params := a.Defaults()
	results := make([]Result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, p := range paths {
		g.Go(func() error {
			res, _, err := a.segmentFile(ctx, p, params)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ErrNoActiveSpans is returned by [App.SplitFile] when the input holds no
// active audio.
var ErrNoActiveSpans = errors.New("app: no active spans found")

// SplitFile segments in and writes every active span to its own WAV file
// named after outPattern: a trailing ".wav" is stripped and "_<n>.wav" is
// appended with n counting from 1. With keep_source_rate the files are
// written at the input's own sample rate. It returns the written paths.
func (a *App) SplitFile(ctx context.Context, in, outPattern string) ([]string, error) {
	res, clip, err := a.segmentFile(ctx, in, a.Defaults())
	if err != nil {
		return nil, err
	}

	a.mu.RLock()
	keep := a.keepSourceRate
	a.mu.RUnlock()
	desired := 0
	if keep {
		desired = res.SourceSampleRate
	}

	var written []string
	for _, s := range res.Spans {
		if !s.Active {
			continue
		}
		name := SegmentPath(outPattern, len(written)+1)
		pcm := slicePCM(clip, s)
		if err := wav.Write(name, pcm, clip.SampleRate, desired); err != nil {
			return written, fmt.Errorf("app: write %q: %w", name, err)
		}
		slog.Info("saved segment", "path", name, "start", s.Start, "end", s.End)
		written = append(written, name)
	}
	if len(written) == 0 {
		return nil, ErrNoActiveSpans
	}
	return written, nil
}

// SegmentPath returns the output file name for the n-th active span.
func SegmentPath(pattern string, n int) string {
	if i := strings.LastIndex(pattern, ".wav"); i >= 0 {
		pattern = pattern[:i]
	}
	return fmt.Sprintf("%s_%d.wav", pattern, n)
}

// slicePCM returns the bytes of clip covered by s. Span bounds past the end
// of the data (the padded tail frame) are clamped.
func slicePCM(clip audio.Clip, s segment.Span) []byte {
	from := int(s.Start*float64(clip.SampleRate)+0.5) * audio.SampleWidth
	to := int(s.End*float64(clip.SampleRate)+0.5) * audio.SampleWidth
	from = min(from, len(clip.Data))
	to = min(to, len(clip.Data))
	return clip.Data[from:to]
}
