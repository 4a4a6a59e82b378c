package app_test

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/vadsplit/internal/app"
	"github.com/MrWong99/vadsplit/internal/config"
	"github.com/MrWong99/vadsplit/internal/observe"
	"github.com/MrWong99/vadsplit/pkg/audio"
	"github.com/MrWong99/vadsplit/pkg/audio/wav"
	"github.com/MrWong99/vadsplit/pkg/provider/vad"
	"github.com/MrWong99/vadsplit/pkg/provider/vad/energy"
	"github.com/MrWong99/vadsplit/pkg/provider/vad/mock"
	"github.com/MrWong99/vadsplit/pkg/segment"
)

// testConfig returns defaults with the pure-Go engine selected.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.VAD.Engine = "energy"
	return cfg
}

func testRegistry() *config.Registry {
	reg := config.NewRegistry()
	reg.RegisterVAD("energy", func(config.VADConfig) (vad.Engine, error) { return energy.New(), nil })
	reg.RegisterVAD("broken", func(config.VADConfig) (vad.Engine, error) { return nil, errors.New("no device") })
	reg.RegisterDecoder("wav", wav.Load)
	return reg
}

func testMetrics(t *testing.T) (*observe.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func newApp(t *testing.T, cfg *config.Config, opts ...app.Option) *app.App {
	t.Helper()
	m, _ := testMetrics(t)
	a, err := app.New(cfg, testRegistry(), append([]app.Option{app.WithMetrics(m)}, opts...)...)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	return a
}

// writeToneWAV writes one second of audio at rate with a 440 Hz tone between
// fromSec and toSec.
func writeToneWAV(t *testing.T, path string, rate int, fromSec, toSec float64) {
	t.Helper()
	pcm := make([]byte, rate*2)
	from, to := int(fromSec*float64(rate)), int(toSec*float64(rate))
	for i := from; i < to; i++ {
		v := 0.5 * math.Sin(2*math.Pi*440*float64(i-from)/float64(rate))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v*32767)))
	}
	if err := wav.Write(path, pcm, rate, 0); err != nil {
		t.Fatalf("write wav: %v", err)
	}
}

func TestNew_UnknownEngine(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.VAD.Engine = "webrtc"
	_, err := app.New(cfg, testRegistry())
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestSegmentFile_Tone(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tone.wav")
	writeToneWAV(t, path, 16000, 0.2, 0.6)

	a := newApp(t, testConfig())
	res, err := a.SegmentFile(context.Background(), path)
	if err != nil {
		t.Fatalf("SegmentFile: %v", err)
	}
	if res.Path != path || res.SampleRate != 16000 || res.SourceSampleRate != 16000 {
		t.Errorf("result header = %+v", res)
	}
	if res.Duration != 1 {
		t.Errorf("Duration = %v, want 1", res.Duration)
	}
	if res.Mode != "vad-3" {
		t.Errorf("Mode = %q, want vad-3", res.Mode)
	}
	want := []segment.Span{
		{Start: 0, End: 0.20},
		{Start: 0.20, End: 0.60, Active: true},
		{Start: 0.60, End: 1.00},
	}
	if len(res.Spans) != len(want) {
		t.Fatalf("spans = %v, want %v", res.Spans, want)
	}
	for i := range want {
		if res.Spans[i] != want[i] {
			t.Errorf("span %d = %v, want %v", i, res.Spans[i], want[i])
		}
	}
}

func TestSegmentFile_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	a := newApp(t, testConfig())
	_, err := a.SegmentFile(context.Background(), "take.flac")
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestSegmentFiles_KeepsOrderAndFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var paths []string
	for i, from := range []float64{0.1, 0.3, 0.5, 0.7} {
		p := filepath.Join(dir, string(rune('a'+i))+".wav")
		writeToneWAV(t, p, 8000, from, from+0.2)
		paths = append(paths, p)
	}

	a := newApp(t, testConfig())
	results, err := a.SegmentFiles(context.Background(), paths, 2)
	if err != nil {
		t.Fatalf("SegmentFiles: %v", err)
	}
	if len(results) != len(paths) {
		t.Fatalf("results = %d, want %d", len(results), len(paths))
	}
	for i, res := range results {
		if res.Path != paths[i] {
			t.Errorf("result %d path = %q, want %q", i, res.Path, paths[i])
		}
		if len(res.Spans) != 3 || !res.Spans[1].Active {
			t.Errorf("result %d spans = %v, want one active span in the middle", i, res.Spans)
		}
	}

	_, err = a.SegmentFiles(context.Background(), append(paths, filepath.Join(dir, "missing.wav")), 3)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestSplitFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	writeToneWAV(t, in, 16000, 0.2, 0.6)

	a := newApp(t, testConfig())
	written, err := a.SplitFile(context.Background(), in, filepath.Join(dir, "out.wav"))
	if err != nil {
		t.Fatalf("SplitFile: %v", err)
	}
	want := filepath.Join(dir, "out_1.wav")
	if len(written) != 1 || written[0] != want {
		t.Fatalf("written = %v, want [%s]", written, want)
	}
	clip, src, err := wav.Read(want, 0)
	if err != nil {
		t.Fatalf("read segment: %v", err)
	}
	if src != 16000 {
		t.Errorf("segment rate = %d, want 16000", src)
	}
	if got := len(clip.Data) / 2; got != 6400 {
		t.Errorf("segment samples = %d, want 6400 (0.40 s)", got)
	}
}

func TestSplitFile_KeepsSourceRate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "cd.wav")
	writeToneWAV(t, in, 44100, 0.2, 0.6)

	a := newApp(t, testConfig())
	written, err := a.SplitFile(context.Background(), in, filepath.Join(dir, "cut"))
	if err != nil {
		t.Fatalf("SplitFile: %v", err)
	}
	if len(written) == 0 {
		t.Fatal("no segments written")
	}
	_, src, err := wav.Read(written[0], 0)
	if err != nil {
		t.Fatalf("read segment: %v", err)
	}
	if src != 44100 {
		t.Errorf("segment rate = %d, want source rate 44100", src)
	}

	cfg := testConfig()
	cfg.Output.KeepSourceRate = false
	a = newApp(t, cfg)
	written, err = a.SplitFile(context.Background(), in, filepath.Join(dir, "analysis"))
	if err != nil {
		t.Fatalf("SplitFile: %v", err)
	}
	if _, src, _ = wav.Read(written[0], 0); src != 32000 {
		t.Errorf("segment rate = %d, want analysis rate 32000", src)
	}
}

func TestSplitFile_Silence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "quiet.wav")
	if err := wav.Write(in, make([]byte, 16000), 8000, 0); err != nil {
		t.Fatal(err)
	}

	a := newApp(t, testConfig())
	if _, err := a.SplitFile(context.Background(), in, filepath.Join(dir, "out")); !errors.Is(err, app.ErrNoActiveSpans) {
		t.Errorf("err = %v, want ErrNoActiveSpans", err)
	}
}

func TestSegmentPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		n       int
		want    string
	}{
		{"out.wav", 1, "out_1.wav"},
		{"dir/out", 2, "dir/out_2.wav"},
		{"a.wav.wav", 3, "a.wav_3.wav"},
		{"take.wavy", 4, "take_4.wav"},
	}
	for _, tc := range tests {
		if got := app.SegmentPath(tc.pattern, tc.n); got != tc.want {
			t.Errorf("SegmentPath(%q, %d) = %q, want %q", tc.pattern, tc.n, got, tc.want)
		}
	}
}

func TestReload(t *testing.T) {
	t.Parallel()

	a := newApp(t, testConfig())
	first := a.Engine()

	cfg := testConfig()
	cfg.Segmenter.Mode = 4
	if err := a.Reload(cfg); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if a.Defaults().Mode != 4 {
		t.Errorf("mode = %d, want 4", a.Defaults().Mode)
	}
	if a.Engine() != first {
		t.Error("engine rebuilt although vad config did not change")
	}

	cfg.VAD.Options = map[string]any{"floor_dbfs": -20}
	if err := a.Reload(cfg); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if a.Engine() == first {
		t.Error("engine not rebuilt after option change")
	}

	bad := testConfig()
	bad.Segmenter.Mode = 1
	bad.VAD.Engine = "broken"
	if err := a.Reload(bad); err == nil {
		t.Fatal("expected reload error")
	}
	if a.Defaults().Mode != 4 {
		t.Errorf("failed reload changed defaults: mode = %d", a.Defaults().Mode)
	}
}

func TestSegment_ClosesSessionAndRecordsMetrics(t *testing.T) {
	t.Parallel()

	sess := &mock.Session{}
	eng := &mock.Engine{Session: sess}
	m, reader := testMetrics(t)
	a, err := app.New(testConfig(), testRegistry(), app.WithEngine(eng), app.WithMetrics(m))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}

	clip := audio.Clip{Data: make([]byte, 16000), SampleRate: 8000, SampleWidth: 2, Channels: 1}
	spans, err := a.Segment(context.Background(), clip, a.Defaults())
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(spans) != 1 || spans[0].Active || spans[0].End != 1 {
		t.Errorf("spans = %v, want one inactive second", spans)
	}
	if !sess.Closed() {
		t.Error("classifier session not closed")
	}

	bad := a.Defaults()
	bad.ThresholdVoiceFrames = 2
	if _, err := a.Segment(context.Background(), clip, bad); !errors.Is(err, segment.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			found[met.Name] = true
		}
	}
	for _, name := range []string{"vadsplit.filter.duration", "vadsplit.spans.emitted", "vadsplit.filter.errors", "vadsplit.active_requests"} {
		if !found[name] {
			t.Errorf("metric %q not recorded", name)
		}
	}
}
