// Package observe provides the observability primitives for vadsplit:
// OpenTelemetry metrics, tracing helpers, trace-aware logging and HTTP
// middleware.
//
// Metrics are recorded through the OpenTelemetry Metrics API and bridged to
// Prometheus by [InitProvider]. [DefaultMetrics] uses the global meter
// provider; tests should call [NewMetrics] with their own provider.
package observe

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/vadsplit/pkg/segment"
)

// meterName is the instrumentation scope name used for all vadsplit metrics.
const meterName = "github.com/MrWong99/vadsplit"

// Metrics holds the OpenTelemetry instruments for the application. All
// fields are safe for concurrent use.
type Metrics struct {
	// FilterDuration tracks wall time of one segmentation call. Attribute:
	//   attribute.String("mode", ...)
	FilterDuration metric.Float64Histogram

	// AudioProcessed sums the seconds of audio segmented.
	AudioProcessed metric.Float64Counter

	// SpansEmitted counts output spans. Attribute:
	//   attribute.Bool("active", ...)
	SpansEmitted metric.Int64Counter

	// FilterErrors counts failed calls. Attributes:
	//   attribute.String("mode", ...), attribute.String("kind", ...)
	FilterErrors metric.Int64Counter

	// DroppedRuns counts single-window trailing runs discarded in rough mode.
	DroppedRuns metric.Int64Counter

	// ActiveRequests tracks segmentation calls in flight.
	ActiveRequests metric.Int64UpDownCounter

	// ConfigReloads counts applied hot reloads.
	ConfigReloads metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time. Attributes:
	//   attribute.String("method", ...), attribute.String("route", ...),
	//   attribute.Int("status", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds. Segmenting a long file
// takes well over a second, so the range is wider than for request latency.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FilterDuration, err = m.Float64Histogram("vadsplit.filter.duration",
		metric.WithDescription("Latency of one segmentation call by mode."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AudioProcessed, err = m.Float64Counter("vadsplit.audio.processed",
		metric.WithDescription("Seconds of audio segmented."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.SpansEmitted, err = m.Int64Counter("vadsplit.spans.emitted",
		metric.WithDescription("Spans returned by segmentation, by activity."),
	); err != nil {
		return nil, err
	}
	if met.FilterErrors, err = m.Int64Counter("vadsplit.filter.errors",
		metric.WithDescription("Failed segmentation calls by mode and error kind."),
	); err != nil {
		return nil, err
	}
	if met.DroppedRuns, err = m.Int64Counter("vadsplit.rough.dropped_runs",
		metric.WithDescription("Trailing single-window runs dropped in rough mode."),
	); err != nil {
		return nil, err
	}
	if met.ActiveRequests, err = m.Int64UpDownCounter("vadsplit.active_requests",
		metric.WithDescription("Segmentation calls in flight."),
	); err != nil {
		return nil, err
	}
	if met.ConfigReloads, err = m.Int64Counter("vadsplit.config.reloads",
		metric.WithDescription("Configuration reloads applied."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("vadsplit.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call from [otel.GetMeterProvider]. Call [InitProvider] first if the
// instruments should be exported.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// ErrorKind maps a segmentation error to a low-cardinality label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, segment.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, segment.ErrInconsistentFrames):
		return "inconsistent_frames"
	case errors.Is(err, segment.ErrDegenerateSegments):
		return "degenerate_segments"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

// RecordFilter records the outcome of one segmentation call. audio is the
// input length; spans is ignored when err is non-nil.
func (m *Metrics) RecordFilter(ctx context.Context, mode segment.Mode, elapsed, audio time.Duration, spans []segment.Span, err error) {
	modeAttr := attribute.String("mode", mode.String())
	m.FilterDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(modeAttr))
	if err != nil {
		m.FilterErrors.Add(ctx, 1, metric.WithAttributes(modeAttr, attribute.String("kind", ErrorKind(err))))
		return
	}
	m.AudioProcessed.Add(ctx, audio.Seconds())

	var active, inactive int64
	for _, s := range spans {
		if s.Active {
			active++
		} else {
			inactive++
		}
	}
	if active > 0 {
		m.SpansEmitted.Add(ctx, active, metric.WithAttributes(attribute.Bool("active", true)))
	}
	if inactive > 0 {
		m.SpansEmitted.Add(ctx, inactive, metric.WithAttributes(attribute.Bool("active", false)))
	}
}

// RecordDroppedRun counts one discarded rough-mode run.
func (m *Metrics) RecordDroppedRun(ctx context.Context) {
	m.DroppedRuns.Add(ctx, 1)
}
