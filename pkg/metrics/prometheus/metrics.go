// Package prometheus provides the Prometheus implementations of the
// metric interfaces. Constructors return nil when the registry gate is
// closed so collection stays zero-cost when disabled.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hashbeam/cidhub/pkg/metrics"
)

type routerMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	hops     prometheus.Histogram
}

// NewRouterMetrics creates Prometheus-backed router metrics, or nil when
// metrics are not enabled.
func NewRouterMetrics() metrics.RouterMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &routerMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cidhub_router_requests_total",
				Help: "Total routed requests by dispatch outcome",
			},
			[]string{"outcome"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cidhub_router_request_duration_seconds",
				Help:    "Request dispatch duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 60},
			},
			[]string{"outcome"},
		),
		hops: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cidhub_router_redirect_hops",
				Help:    "Redirect hops followed per request chain",
				Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
			},
		),
	}
}

func (m *routerMetrics) ObserveRequest(outcome string, seconds float64, hops int) {
	m.requests.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(seconds)
	m.hops.Observe(float64(hops))
}

type storeMetrics struct {
	puts     prometheus.Counter
	putBytes prometheus.Histogram
}

// NewStoreMetrics creates Prometheus-backed CID store metrics, or nil when
// metrics are not enabled.
func NewStoreMetrics() metrics.StoreMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &storeMetrics{
		puts: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "cidhub_store_puts_total",
				Help: "Total CID store puts",
			},
		),
		putBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cidhub_store_put_bytes",
				Help:    "Distribution of stored content sizes",
				Buckets: []float64{64, 1024, 32768, 1048576, 10485760},
			},
		),
	}
}

func (m *storeMetrics) ObservePut(size int) {
	m.puts.Inc()
	m.putBytes.Observe(float64(size))
}

type execMetrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewExecMetrics creates Prometheus-backed executor metrics, or nil when
// metrics are not enabled.
func NewExecMetrics() metrics.ExecMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &execMetrics{
		invocations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cidhub_server_invocations_total",
				Help: "Total server executions by server and status",
			},
			[]string{"server", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cidhub_server_invocation_duration_seconds",
				Help:    "Server execution duration in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 1, 10, 60},
			},
			[]string{"server"},
		),
	}
}

func (m *execMetrics) ObserveInvocation(server string, seconds float64, failed bool) {
	status := "ok"
	if failed {
		status = "error"
	}
	m.invocations.WithLabelValues(server, status).Inc()
	m.duration.WithLabelValues(server).Observe(seconds)
}

type exportMetrics struct {
	exports  prometheus.Counter
	duration prometheus.Histogram
	size     prometheus.Histogram
}

// NewExportMetrics creates Prometheus-backed export metrics, or nil when
// metrics are not enabled.
func NewExportMetrics() metrics.ExportMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &exportMetrics{
		exports: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "cidhub_exports_total",
				Help: "Total workspace exports",
			},
		),
		duration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cidhub_export_duration_seconds",
				Help:    "Export assembly duration in seconds",
				Buckets: []float64{0.01, 0.1, 1, 10, 60},
			},
		),
		size: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cidhub_export_payload_bytes",
				Help:    "Export payload size in bytes",
				Buckets: []float64{1024, 32768, 1048576, 10485760, 104857600},
			},
		),
	}
}

func (m *exportMetrics) ObserveExport(seconds float64, size int) {
	m.exports.Inc()
	m.duration.Observe(seconds)
	m.size.Observe(float64(size))
}
