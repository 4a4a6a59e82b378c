package server_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/vadsplit/internal/app"
	"github.com/MrWong99/vadsplit/internal/config"
	"github.com/MrWong99/vadsplit/internal/health"
	"github.com/MrWong99/vadsplit/internal/observe"
	"github.com/MrWong99/vadsplit/internal/server"
	"github.com/MrWong99/vadsplit/pkg/audio"
	"github.com/MrWong99/vadsplit/pkg/audio/mp3"
	"github.com/MrWong99/vadsplit/pkg/audio/wav"
	"github.com/MrWong99/vadsplit/pkg/provider/vad"
	"github.com/MrWong99/vadsplit/pkg/provider/vad/energy"
	"github.com/MrWong99/vadsplit/pkg/segment"
)

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func newTestServer(t *testing.T, opts ...server.Option) http.Handler {
	t.Helper()
	cfg := config.Default()
	cfg.VAD.Engine = "energy"

	reg := config.NewRegistry()
	reg.RegisterVAD("energy", func(config.VADConfig) (vad.Engine, error) { return energy.New(), nil })
	reg.RegisterDecoder("wav", wav.Load)
	reg.RegisterDecoder("mp3", func(r io.ReadSeeker, rate int) (audio.Clip, int, error) { return mp3.Load(r, rate) })

	m := testMetrics(t)
	a, err := app.New(cfg, reg, app.WithMetrics(m))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	promReg := prometheus.NewRegistry()
	base := []server.Option{
		server.WithMetrics(m),
		server.WithMetricsHandler(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})),
	}
	return server.New(a, append(base, opts...)...).Handler()
}

// toneWAV returns one second of 16 kHz WAV with a tone between 0.2 s and 0.6 s.
func toneWAV(t *testing.T) []byte {
	t.Helper()
	const rate = 16000
	pcm := make([]byte, rate*2)
	for i := 3200; i < 9600; i++ {
		v := 0.5 * math.Sin(2*math.Pi*440*float64(i-3200)/rate)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v*32767)))
	}
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := wav.Write(path, pcm, rate, 0); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func post(t *testing.T, h http.Handler, target, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSegment_WAV(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)
	rec := post(t, h, "/v1/segment", "audio/wav", toneWAV(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp server.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := uuid.Parse(resp.RequestID); err != nil {
		t.Errorf("request_id %q is not a UUID: %v", resp.RequestID, err)
	}
	if got := rec.Header().Get(server.RequestIDHeader); got != resp.RequestID {
		t.Errorf("%s = %q, want %q", server.RequestIDHeader, got, resp.RequestID)
	}
	if resp.SampleRate != 16000 || resp.Duration != 1 || resp.Mode != "vad-3" {
		t.Errorf("header fields = %+v", resp.Result)
	}
	want := []segment.Span{
		{Start: 0, End: 0.20},
		{Start: 0.20, End: 0.60, Active: true},
		{Start: 0.60, End: 1.00},
	}
	if len(resp.Spans) != len(want) {
		t.Fatalf("spans = %v, want %v", resp.Spans, want)
	}
	for i := range want {
		if resp.Spans[i] != want[i] {
			t.Errorf("span %d = %v, want %v", i, resp.Spans[i], want[i])
		}
	}
}

func TestSegment_QueryOverrides(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)
	rec := post(t, h, "/v1/segment?format=wav&mode=4&frame_ms=20", "", toneWAV(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp server.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Mode != "rough" {
		t.Errorf("mode = %q, want rough", resp.Mode)
	}
	if len(resp.Spans) == 0 || resp.Spans[len(resp.Spans)-1].End != 1 {
		t.Errorf("spans do not cover the input: %v", resp.Spans)
	}
}

func TestSegment_Errors(t *testing.T) {
	t.Parallel()

	tone := toneWAV(t)
	tests := []struct {
		name        string
		target      string
		contentType string
		body        []byte
		want        int
	}{
		{"no content type", "/v1/segment", "", tone, http.StatusUnsupportedMediaType},
		{"unknown content type", "/v1/segment", "audio/flac", tone, http.StatusUnsupportedMediaType},
		{"unregistered format", "/v1/segment?format=ogg", "", tone, http.StatusUnsupportedMediaType},
		{"bad mode", "/v1/segment?mode=7", "audio/wav", tone, http.StatusBadRequest},
		{"mode not a number", "/v1/segment?mode=loud", "audio/wav", tone, http.StatusBadRequest},
		{"bad frame", "/v1/segment?frame_ms=25", "audio/wav", tone, http.StatusBadRequest},
		{"bad threshold", "/v1/segment?threshold=0.001", "audio/wav", tone, http.StatusBadRequest},
		{"padding shorter than frame", "/v1/segment?frame_ms=30&padding_ms=20", "audio/wav", tone, http.StatusBadRequest},
		{"garbage wav", "/v1/segment", "audio/x-wav", []byte("definitely not RIFF"), http.StatusBadRequest},
		{"garbage mp3", "/v1/segment", "audio/mpeg", []byte("definitely not mp3"), http.StatusBadRequest},
		{"empty body", "/v1/segment", "audio/wav", nil, http.StatusBadRequest},
	}
	h := newTestServer(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(t, h, tc.target, tc.contentType, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d; body = %s", rec.Code, tc.want, rec.Body)
			}
			var resp server.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error == "" || resp.RequestID == "" {
				t.Errorf("error body = %+v", resp)
			}
		})
	}
}

func TestSegment_BodyTooLarge(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, server.WithMaxBodyBytes(1024))
	rec := post(t, h, "/v1/segment", "audio/wav", toneWAV(t))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
}

func TestSegment_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/segment", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestProbesAndMetrics(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, server.WithCheckers(health.Checker{
		Name:  "engine",
		Check: func(context.Context) error { return nil },
	}))

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
		if path == "/readyz" && !strings.Contains(rec.Body.String(), `"engine":"ok"`) {
			t.Errorf("readyz body = %s", rec.Body)
		}
	}
}
