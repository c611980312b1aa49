// Package observe provides application-wide observability primitives for
// scriptpace: OpenTelemetry metrics and the SDK provider setup.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all scriptpace metrics.
const meterName = "github.com/MrWong99/scriptpace"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// AlignDuration tracks the latency of one alignment pass (both aligners
	// plus the merge) over a recognized transcript.
	AlignDuration metric.Float64Histogram

	// SegmentsCommitted counts committed caption segments. Use with
	// attribute: attribute.String("reason", ...)
	SegmentsCommitted metric.Int64Counter

	// RecognizerFailures counts classified recognizer failures. Use with
	// attribute: attribute.String("class", ...)
	RecognizerFailures metric.Int64Counter

	// RecognizerRestarts counts restarts scheduled by the recovery policy.
	// Use with attribute: attribute.String("class", ...)
	RecognizerRestarts metric.Int64Counter

	// DownstreamErrors counts non-fatal translation, sink, and archive
	// failures. Use with attribute: attribute.String("collaborator", ...)
	DownstreamErrors metric.Int64Counter

	// ActiveSessions tracks live alignment/captioning sessions. Use with
	// attribute: attribute.String("mode", ...)
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// per-transcript alignment work, which is far cheaper than network calls.
var latencyBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AlignDuration, err = m.Float64Histogram("scriptpace.align.duration",
		metric.WithDescription("Latency of one alignment pass over a recognized transcript."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SegmentsCommitted, err = m.Int64Counter("scriptpace.segments.committed",
		metric.WithDescription("Total committed caption segments by finalize reason."),
	); err != nil {
		return nil, err
	}
	if met.RecognizerFailures, err = m.Int64Counter("scriptpace.recognizer.failures",
		metric.WithDescription("Total classified recognizer failures."),
	); err != nil {
		return nil, err
	}
	if met.RecognizerRestarts, err = m.Int64Counter("scriptpace.recognizer.restarts",
		metric.WithDescription("Total recognizer restarts scheduled by the recovery policy."),
	); err != nil {
		return nil, err
	}
	if met.DownstreamErrors, err = m.Int64Counter("scriptpace.downstream.errors",
		metric.WithDescription("Total non-fatal downstream collaborator failures."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("scriptpace.active_sessions",
		metric.WithDescription("Number of live alignment/captioning sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordCommit records a committed segment with its finalize reason.
func (m *Metrics) RecordCommit(ctx context.Context, reason string) {
	m.SegmentsCommitted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordFailure records a classified recognizer failure.
func (m *Metrics) RecordFailure(ctx context.Context, class string) {
	m.RecognizerFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("class", class)),
	)
}

// RecordRestart records a scheduled recognizer restart.
func (m *Metrics) RecordRestart(ctx context.Context, class string) {
	m.RecognizerRestarts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("class", class)),
	)
}

// RecordDownstreamError records a non-fatal downstream collaborator failure.
func (m *Metrics) RecordDownstreamError(ctx context.Context, collaborator string) {
	m.DownstreamErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("collaborator", collaborator)),
	)
}
