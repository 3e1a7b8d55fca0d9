// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, distributed tracing, structured logging, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
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

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/calvin-seamons/shadowscribe"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// LocalClassifierDuration tracks the L0/L1 local-routing-classifier pass.
	LocalClassifierDuration metric.Float64Histogram

	// RoutingLLMDuration tracks each concurrent routing LLM call
	// (tool-selector, entity-extractor).
	RoutingLLMDuration metric.Float64Histogram

	// EntityResolutionDuration tracks C1's resolve() call.
	EntityResolutionDuration metric.Float64Histogram

	// RetrievalDuration tracks a single per-tool retriever call. Use with
	// attribute.String("tool", ...).
	RetrievalDuration metric.Float64Histogram

	// FinalLLMDuration tracks the final streamed-answer call, end to end.
	FinalLLMDuration metric.Float64Histogram

	// QueryDuration tracks total query latency from intake to completion.
	QueryDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// FastpathHits counts queries resolved by C5's L0 fastpath rules with no
	// LLM call.
	FastpathHits metric.Int64Counter

	// ClassifierAbstentions counts queries where the local classifier
	// abstained and the query was answered without retrieval.
	ClassifierAbstentions metric.Int64Counter

	// RetrieverFailures counts per-tool retriever failures or timeouts. Use
	// with attribute.String("tool", ...).
	RetrieverFailures metric.Int64Counter

	// RoutingFallbacks counts queries that fell back to the heuristic
	// character_summary-only plan after both LLM routing calls failed.
	RoutingFallbacks metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveQueries tracks the number of queries currently in flight.
	ActiveQueries metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) covering
// the local classifier's sub-100ms budget up through the final LLM stream's
// 60s ceiling.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.LocalClassifierDuration, err = m.Float64Histogram("shadowscribe.routing.local.duration",
		metric.WithDescription("Latency of the local routing classifier pass."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RoutingLLMDuration, err = m.Float64Histogram("shadowscribe.routing.llm.duration",
		metric.WithDescription("Latency of a single routing LLM call (tool-selector or entity-extractor)."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EntityResolutionDuration, err = m.Float64Histogram("shadowscribe.entity_resolution.duration",
		metric.WithDescription("Latency of entity resolution across selected sources."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RetrievalDuration, err = m.Float64Histogram("shadowscribe.retrieval.duration",
		metric.WithDescription("Latency of a single per-tool retriever call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FinalLLMDuration, err = m.Float64Histogram("shadowscribe.final_llm.duration",
		metric.WithDescription("Latency of the final streamed-answer LLM call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.QueryDuration, err = m.Float64Histogram("shadowscribe.query.duration",
		metric.WithDescription("Total query latency from intake to completion."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("shadowscribe.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.FastpathHits, err = m.Int64Counter("shadowscribe.routing.fastpath_hits",
		metric.WithDescription("Total queries resolved by the L0 fastpath with no LLM call."),
	); err != nil {
		return nil, err
	}
	if met.ClassifierAbstentions, err = m.Int64Counter("shadowscribe.routing.abstentions",
		metric.WithDescription("Total queries where the local classifier abstained and no retrieval ran."),
	); err != nil {
		return nil, err
	}
	if met.RetrieverFailures, err = m.Int64Counter("shadowscribe.retrieval.failures",
		metric.WithDescription("Total per-tool retriever failures or timeouts by tool."),
	); err != nil {
		return nil, err
	}
	if met.RoutingFallbacks, err = m.Int64Counter("shadowscribe.routing.fallbacks",
		metric.WithDescription("Total queries that fell back to the heuristic character_summary plan."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("shadowscribe.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveQueries, err = m.Int64UpDownCounter("shadowscribe.queries.active",
		metric.WithDescription("Number of queries currently in flight."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("shadowscribe.http.request.duration",
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

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordRetrieverFailure is a convenience method that records a per-tool
// retriever failure or timeout.
func (m *Metrics) RecordRetrieverFailure(ctx context.Context, tool string) {
	m.RetrieverFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("tool", tool)),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
