package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the backoffice.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	settlements     *prometheus.CounterVec
	ledgerWrites    *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	sequences       *prometheus.CounterVec
	storeErrors     *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backoffice_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		settlements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_settlements_total",
				Help: "Sale confirmations by kind and ledger outcome.",
			},
			[]string{"kind", "outcome"},
		),
		ledgerWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_ledger_writes_total",
				Help: "Ledger mutations by movement type and result.",
			},
			[]string{"type", "result"},
		),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_status_transitions_total",
				Help: "Status transitions by entity, target status and result.",
			},
			[]string{"entity", "status", "result"},
		),
		sequences: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_tracking_numbers_issued_total",
				Help: "Tracking numbers issued by kind.",
			},
			[]string{"kind"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_store_errors_total",
				Help: "Backing store failures by backend.",
			},
			[]string{"backend"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordRequest records one HTTP request.
func (m *Metrics) RecordRequest(method, route, status string, d time.Duration) {
	m.requestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// IncrSettlement counts a sale confirmation by outcome.
func (m *Metrics) IncrSettlement(kind, outcome string) {
	m.settlements.WithLabelValues(kind, outcome).Inc()
}

// IncrLedgerWrite counts a ledger mutation; result is "ok" or "error".
func (m *Metrics) IncrLedgerWrite(movementType, result string) {
	m.ledgerWrites.WithLabelValues(movementType, result).Inc()
}

// IncrTransition counts a status change attempt.
func (m *Metrics) IncrTransition(entity, status, result string) {
	m.transitions.WithLabelValues(entity, status, result).Inc()
}

// IncrSequence counts an issued tracking number.
func (m *Metrics) IncrSequence(kind string) {
	m.sequences.WithLabelValues(kind).Inc()
}

// IncrStoreError increments the store error counter.
func (m *Metrics) IncrStoreError(backend string) {
	m.storeErrors.WithLabelValues(backend).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// SettlementCount returns the cumulative count for one kind/outcome pair.
func (m *Metrics) SettlementCount(kind, outcome string) float64 {
	return getCounterValue(m.settlements, kind, outcome)
}

// StoreErrorCount returns the cumulative failures of one backend.
func (m *Metrics) StoreErrorCount(backend string) float64 {
	return getCounterValue(m.storeErrors, backend)
}

// TransitionCount returns the cumulative count for one entity/status/result.
func (m *Metrics) TransitionCount(entity, status, result string) float64 {
	return getCounterValue(m.transitions, entity, status, result)
}

// CacheHitRate returns hits/(hits+misses) for a cache, or 0 before any lookup.
func (m *Metrics) CacheHitRate(cache string) float64 {
	hits := getCounterValue(m.cacheHits, cache)
	misses := getCounterValue(m.cacheMisses, cache)
	if hits+misses == 0 {
		return 0
	}
	return hits / (hits + misses)
}

// getCounterValue extracts the current float64 value from a CounterVec.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
