// Package observe provides application-wide observability primitives for
// Podium: OpenTelemetry metrics, distributed tracing, and HTTP middleware
// that ties them together.
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

// meterName is the instrumentation scope name used for all Podium metrics.
const meterName = "github.com/podiumlabs/podium"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// FacialAnalysisDuration tracks facial frame analysis latency.
	FacialAnalysisDuration metric.Float64Histogram

	// TranscriptionDuration tracks speech-to-text latency per utterance.
	TranscriptionDuration metric.Float64Histogram

	// FeedbackDuration tracks coach LLM feedback latency.
	FeedbackDuration metric.Float64Histogram

	// --- Counters ---

	// ScoreCalculations counts scoring evaluations. Use with attributes:
	//   attribute.String("difficulty", ...), attribute.String("grade", ...)
	ScoreCalculations metric.Int64Counter

	// ComboBreaks counts combo-broken transitions.
	ComboBreaks metric.Int64Counter

	// AchievementUnlocks counts achievement unlocks. Use with attribute:
	//   attribute.String("achievement", ...)
	AchievementUnlocks metric.Int64Counter

	// FeedbackRequests counts coach feedback requests. Use with attribute:
	//   attribute.String("outcome", ...) — "llm", "fallback", "rate_limited", "no_data"
	FeedbackRequests metric.Int64Counter

	// --- Error counters ---

	// AnalyzerErrors counts analyzer failures. Use with attribute:
	//   attribute.String("analyzer", ...) — "facial", "voice", "stt"
	AnalyzerErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live coaching sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for real-time pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.FacialAnalysisDuration, err = m.Float64Histogram("podium.facial.duration",
		metric.WithDescription("Latency of facial frame analysis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionDuration, err = m.Float64Histogram("podium.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FeedbackDuration, err = m.Float64Histogram("podium.feedback.duration",
		metric.WithDescription("Latency of coach LLM feedback generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ScoreCalculations, err = m.Int64Counter("podium.score.calculations",
		metric.WithDescription("Total scoring evaluations by difficulty and grade."),
	); err != nil {
		return nil, err
	}
	if met.ComboBreaks, err = m.Int64Counter("podium.combo.breaks",
		metric.WithDescription("Total combo-broken transitions."),
	); err != nil {
		return nil, err
	}
	if met.AchievementUnlocks, err = m.Int64Counter("podium.achievement.unlocks",
		metric.WithDescription("Total achievement unlocks by achievement ID."),
	); err != nil {
		return nil, err
	}
	if met.FeedbackRequests, err = m.Int64Counter("podium.feedback.requests",
		metric.WithDescription("Total coach feedback requests by outcome."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.AnalyzerErrors, err = m.Int64Counter("podium.analyzer.errors",
		metric.WithDescription("Total analyzer failures by analyzer kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("podium.active_sessions",
		metric.WithDescription("Number of live coaching sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("podium.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
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

// RecordScoreCalculation records one scoring evaluation.
func (m *Metrics) RecordScoreCalculation(ctx context.Context, difficulty, grade string) {
	m.ScoreCalculations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("difficulty", difficulty),
			attribute.String("grade", grade),
		),
	)
}

// RecordAchievementUnlock records one achievement unlock.
func (m *Metrics) RecordAchievementUnlock(ctx context.Context, achievementID string) {
	m.AchievementUnlocks.Add(ctx, 1,
		metric.WithAttributes(attribute.String("achievement", achievementID)),
	)
}

// RecordFeedbackRequest records one coach feedback request with its outcome.
func (m *Metrics) RecordFeedbackRequest(ctx context.Context, outcome string) {
	m.FeedbackRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordAnalyzerError records one analyzer failure.
func (m *Metrics) RecordAnalyzerError(ctx context.Context, analyzer string) {
	m.AnalyzerErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("analyzer", analyzer)),
	)
}
