// Package server exposes segmentation over HTTP.
//
// Routes:
//
//	POST /v1/segment   WAV or MP3 body, JSON span list back
//	GET  /healthz      liveness
//	GET  /readyz       readiness
//	GET  /metrics      Prometheus exposition
//
// All routes run behind [observe.Middleware].
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/vadsplit/internal/app"
	"github.com/MrWong99/vadsplit/internal/config"
	"github.com/MrWong99/vadsplit/internal/health"
	"github.com/MrWong99/vadsplit/internal/observe"
	"github.com/MrWong99/vadsplit/pkg/segment"
)

// RequestIDHeader carries the request ID on every /v1/segment response.
const RequestIDHeader = "X-Request-ID"

// shutdownTimeout bounds how long in-flight uploads may finish after the
// serve context ends.
const shutdownTimeout = 15 * time.Second

// contentTypes maps upload media types to decoder format names.
var contentTypes = map[string]string{
	"audio/wav":      "wav",
	"audio/wave":     "wav",
	"audio/x-wav":    "wav",
	"audio/vnd.wave": "wav",
	"audio/mpeg":     "mp3",
	"audio/mp3":      "mp3",
	"audio/x-mpeg-3": "mp3",
	"audio/mpeg3":    "mp3",
}

// Response is the body of a successful /v1/segment call.
type Response struct {
	RequestID string `json:"request_id"`
	app.Result
}

// ErrorResponse is the body of a failed call.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error"`
}

// Server is the HTTP front end of an [app.App].
type Server struct {
	app      *app.App
	metrics  *observe.Metrics
	health   *health.Handler
	maxBody  int64
	promHTTP http.Handler
	checkers []health.Checker
	handler  http.Handler
}

// Option is a functional option for [New].
type Option func(*Server)

// WithMetrics records to m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMaxBodyBytes caps upload size. Zero or less means no limit.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// WithMetricsHandler serves h on /metrics instead of promhttp.Handler().
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.promHTTP = h }
}

// WithCheckers adds readiness checks to /readyz.
func WithCheckers(c ...health.Checker) Option {
	return func(s *Server) { s.checkers = append(s.checkers, c...) }
}

// New builds the route table for a.
func New(a *app.App, opts ...Option) *Server {
	s := &Server{app: a, maxBody: config.Default().Server.MaxBodyBytes}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.promHTTP == nil {
		s.promHTTP = promhttp.Handler()
	}
	s.health = health.New(s.checkers...)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/segment", s.handleSegment)
	mux.Handle("GET /metrics", s.promHTTP)
	s.health.Register(mux)
	s.handler = observe.Middleware(s.metrics)(mux)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves on addr until ctx is done, then drains readiness and
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	s.health.Drain()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	w.Header().Set(RequestIDHeader, id)
	log := observe.Logger(r.Context()).With("request_id", id)

	format, err := uploadFormat(r)
	if err != nil {
		writeError(w, id, http.StatusUnsupportedMediaType, err)
		return
	}
	params, err := overrides(s.app.Defaults(), r)
	if err != nil {
		writeError(w, id, http.StatusBadRequest, err)
		return
	}

	body := r.Body
	if s.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxBody)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, id, http.StatusRequestEntityTooLarge, fmt.Errorf("body exceeds %d bytes", tooBig.Limit))
			return
		}
		writeError(w, id, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}
	if len(data) == 0 {
		writeError(w, id, http.StatusBadRequest, errors.New("empty body"))
		return
	}

	res, err := s.app.SegmentReader(r.Context(), bytes.NewReader(data), format, params)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error("segmentation failed", "format", format, "err", err)
		} else {
			log.Info("segmentation rejected", "format", format, "err", err)
		}
		writeError(w, id, status, err)
		return
	}

	log.Debug("segmentation done", "format", format, "spans", len(res.Spans), "duration", res.Duration)
	writeJSON(w, http.StatusOK, Response{RequestID: id, Result: res})
}

// uploadFormat picks the decoder from ?format= or the Content-Type header.
func uploadFormat(r *http.Request) (string, error) {
	if f := r.URL.Query().Get("format"); f != "" {
		return f, nil
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return "", errors.New("missing Content-Type or ?format=")
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", fmt.Errorf("content type %q: %w", ct, err)
	}
	f, ok := contentTypes[mt]
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", mt)
	}
	return f, nil
}

// overrides applies query parameters on top of the configured defaults.
func overrides(p config.SegmenterConfig, r *http.Request) (config.SegmenterConfig, error) {
	q := r.URL.Query()
	ints := []struct {
		key string
		dst *int
	}{
		{"mode", &p.Mode},
		{"frame_ms", &p.FrameDurationMs},
		{"padding_ms", &p.PaddingDurationMs},
	}
	for _, f := range ints {
		v := q.Get(f.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("query %s=%q is not an integer", f.key, v)
		}
		*f.dst = n
	}
	floats := []struct {
		key string
		dst *float64
	}{
		{"threshold", &p.ThresholdVoiceFrames},
		{"threshold_rms", &p.ThresholdRMS},
		{"threshold_zcr", &p.ThresholdZCR},
	}
	for _, f := range floats {
		v := q.Get(f.key)
		if v == "" {
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, fmt.Errorf("query %s=%q is not a number", f.key, v)
		}
		*f.dst = x
	}
	return p, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, segment.ErrInvalidArgument), errors.Is(err, segment.ErrInconsistentFrames):
		return http.StatusBadRequest
	case errors.Is(err, config.ErrProviderNotRegistered):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, id string, status int, err error) {
	writeJSON(w, status, ErrorResponse{RequestID: id, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
