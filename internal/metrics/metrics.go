package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the service. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	// price feed
	PriceLookups     *prometheus.CounterVec
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration prometheus.Histogram
	PriceCacheSize   prometheus.Gauge

	// trading
	RouteLookups  *prometheus.CounterVec
	ContractSteps *prometheus.CounterVec

	// background work
	PollRuns    *prometheus.CounterVec
	PollSkipped *prometheus.CounterVec

	// api
	HTTPRequests   *prometheus.CounterVec
	HistoryRecords *prometheus.CounterVec
}

// New creates and registers all collectors with reg.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	return &Metrics{
		PriceLookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_lookups_total",
			Help:      "Price lookups by the layer that answered them.",
		}, []string{"source"}),
		UpstreamRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_upstream_requests_total",
			Help:      "Requests sent to the upstream price feed by outcome.",
		}, []string{"endpoint", "outcome"}),
		UpstreamDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "price_upstream_duration_seconds",
			Help:      "Latency of upstream price feed requests.",
			Buckets:   prometheus.DefBuckets,
		}),
		PriceCacheSize: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "price_cache_entries",
			Help:      "Entries currently held by the price cache.",
		}),
		RouteLookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_lookups_total",
			Help:      "Route discovery results.",
		}, []string{"result"}),
		ContractSteps: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contract_steps_total",
			Help:      "Orchestrated contract steps by step and status.",
		}, []string{"step", "status"}),
		PollRuns: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_runs_total",
			Help:      "Periodic task runs by task and result.",
		}, []string{"task", "result"}),
		PollSkipped: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_skipped_total",
			Help:      "Periodic ticks skipped because the previous run was still in flight.",
		}, []string{"task"}),
		HTTPRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		HistoryRecords: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_records_total",
			Help:      "History records created by kind.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) PriceLookup(source string) {
	if m == nil {
		return
	}
	m.PriceLookups.WithLabelValues(source).Inc()
}

func (m *Metrics) Upstream(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	m.UpstreamDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) CacheSize(n int) {
	if m == nil {
		return
	}
	m.PriceCacheSize.Set(float64(n))
}

func (m *Metrics) RouteLookup(result string) {
	if m == nil {
		return
	}
	m.RouteLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ContractStep(step string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ContractSteps.WithLabelValues(step, status).Inc()
}

func (m *Metrics) PollRun(task string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.PollRuns.WithLabelValues(task, result).Inc()
}

func (m *Metrics) PollSkip(task string) {
	if m == nil {
		return
	}
	m.PollSkipped.WithLabelValues(task).Inc()
}

func (m *Metrics) HTTPRequest(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, statusLabel(code)).Inc()
}

func (m *Metrics) HistoryRecord(kind string) {
	if m == nil {
		return
	}
	m.HistoryRecords.WithLabelValues(kind).Inc()
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
