package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the Prometheus metrics.
type Config struct {
	// Namespace is the metrics namespace (default: "livedoc").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for render duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// metrics holds the Prometheus metrics for livedoc.
type metrics struct {
	rendersTotal    *prometheus.CounterVec
	renderDuration  prometheus.Histogram
	activeSessions  prometheus.Gauge
	cleanupFailures prometheus.Counter
	liveClients     prometheus.Gauge
}

var (
	globalMetrics atomic.Pointer[metrics]
	initMu        sync.Mutex
)

// defaultConfig returns the default metrics configuration.
func defaultConfig() Config {
	return Config{
		Namespace: "livedoc",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Init registers the livedoc metrics. Safe to call more than once; only
// the first call registers.
func Init(cfg Config) {
	defaults := defaultConfig()
	if cfg.Namespace == "" {
		cfg.Namespace = defaults.Namespace
	}
	if cfg.Buckets == nil {
		cfg.Buckets = defaults.Buckets
	}
	if cfg.Registry == nil {
		cfg.Registry = defaults.Registry
	}

	initMu.Lock()
	defer initMu.Unlock()
	if globalMetrics.Load() != nil {
		return
	}

	factory := promauto.With(cfg.Registry)
	globalMetrics.Store(&metrics{
		rendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "renders_total",
			Help:        "Total number of document renders by status",
			ConstLabels: cfg.ConstLabels,
		}, []string{"status"}),

		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Name:        "render_duration_seconds",
			Help:        "Document render duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "active_sessions",
			Help:        "Number of active preview sessions",
			ConstLabels: cfg.ConstLabels,
		}),

		cleanupFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "cleanup_failures_total",
			Help:        "Total number of failed temp artifact deletions",
			ConstLabels: cfg.ConstLabels,
		}),

		liveClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "live_clients",
			Help:        "Number of connected live-update WebSocket clients",
			ConstLabels: cfg.ConstLabels,
		}),
	})
}

// RecordRender records a completed render invocation.
func RecordRender(status string, seconds float64) {
	if m := globalMetrics.Load(); m != nil {
		m.rendersTotal.WithLabelValues(status).Inc()
		m.renderDuration.Observe(seconds)
	}
}

// RecordSessionStart records a new preview session.
func RecordSessionStart() {
	if m := globalMetrics.Load(); m != nil {
		m.activeSessions.Inc()
	}
}

// RecordSessionEnd records a session teardown.
func RecordSessionEnd() {
	if m := globalMetrics.Load(); m != nil {
		m.activeSessions.Dec()
	}
}

// RecordCleanupFailure records a failed temp deletion.
func RecordCleanupFailure() {
	if m := globalMetrics.Load(); m != nil {
		m.cleanupFailures.Inc()
	}
}

// RecordClientConnect records a live-update client connecting.
func RecordClientConnect() {
	if m := globalMetrics.Load(); m != nil {
		m.liveClients.Inc()
	}
}

// RecordClientDisconnect records a live-update client disconnecting.
func RecordClientDisconnect() {
	if m := globalMetrics.Load(); m != nil {
		m.liveClients.Dec()
	}
}
