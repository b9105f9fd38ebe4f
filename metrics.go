package mezport

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the fetch lifecycle and
// reliability layers. It is safe for concurrent use; every recorder is
// nil-safe so a client without metrics pays only a nil check.
type MetricsCollector struct {
	fetchesTotal    *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	fetchesInFlight prometheus.Gauge

	retriesTotal *prometheus.CounterVec

	circuitBreakerState *prometheus.GaugeVec

	rateLimiterTokens *prometheus.GaugeVec

	logsFetchedTotal prometheus.Counter

	errorsTotal *prometheus.CounterVec

	registry prometheus.Registerer
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		fetchesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mezport_fetches_total",
				Help: "Total number of fetches by outcome",
			},
			[]string{"status"},
		),
		fetchDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mezport_fetch_duration_seconds",
				Help:    "Duration of whole fetches (all attempts) in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		fetchesInFlight: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "mezport_fetches_in_flight",
				Help: "Number of fetches currently in flight",
			},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mezport_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"attempt"},
		),
		circuitBreakerState: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mezport_circuit_breaker_state",
				Help: "Current state of circuit breaker (0=closed, 1=open, 2=half-open)",
			},
			[]string{"name"},
		),
		rateLimiterTokens: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mezport_rate_limiter_tokens",
				Help: "Current number of available rate limiter tokens",
			},
			[]string{"name"},
		),
		logsFetchedTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "mezport_logs_fetched_total",
				Help: "Total log lines retrieved from the export API",
			},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mezport_errors_total",
				Help: "Total number of errors encountered by type",
			},
			[]string{"type"},
		),
		registry: registry,
	}
}

// RecordFetch records fetch count and duration by outcome. Status is
// "success" or the FetchError type tag.
func (mc *MetricsCollector) RecordFetch(status string, duration time.Duration) {
	if mc == nil {
		return
	}

	mc.fetchesTotal.WithLabelValues(status).Inc()
	mc.fetchDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordFetchStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordFetchStart() {
	if mc == nil {
		return
	}

	mc.fetchesInFlight.Inc()
}

// RecordFetchEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordFetchEnd() {
	if mc == nil {
		return
	}

	mc.fetchesInFlight.Dec()
}

// RecordRetry increments the retry counter for an attempt.
func (mc *MetricsCollector) RecordRetry(attempt int) {
	if mc == nil {
		return
	}

	mc.retriesTotal.WithLabelValues(strconv.Itoa(attempt)).Inc()
}

// RecordCircuitBreakerState sets the breaker state gauge.
func (mc *MetricsCollector) RecordCircuitBreakerState(name string, state CircuitState) {
	if mc == nil {
		return
	}

	mc.circuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordRateLimiterTokens sets the available token gauge.
func (mc *MetricsCollector) RecordRateLimiterTokens(name string, tokens int) {
	if mc == nil {
		return
	}

	mc.rateLimiterTokens.WithLabelValues(name).Set(float64(tokens))
}

// RecordLogsFetched adds retrieved line count.
func (mc *MetricsCollector) RecordLogsFetched(n int) {
	if mc == nil {
		return
	}

	mc.logsFetchedTotal.Add(float64(n))
}

// RecordError increments the error counter by type.
func (mc *MetricsCollector) RecordError(errorType string) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(errorType).Inc()
}

// Registry exposes the registerer metrics were registered on.
func (mc *MetricsCollector) Registry() prometheus.Registerer {
	return mc.registry
}
