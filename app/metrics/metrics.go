package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine outcomes recorded by RecordEngineOp.
const (
	OutcomeOK         = "ok"
	OutcomeRolledBack = "rolled_back"
	OutcomeRejected   = "rejected"
	OutcomeDropped    = "dropped"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Post interaction metrics
	EngineOpsTotal     *prometheus.CounterVec
	EngineOpDuration   *prometheus.HistogramVec
	EnginesActive      prometheus.Gauge
	LikeWaitDuration   prometheus.Histogram
	StoreFailuresTotal *prometheus.CounterVec

	// Credential metrics
	AuthAttemptsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics on the default
// registerer. Later calls return the same instance.
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "animehub_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "route", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "animehub_http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "route"},
			),
			EngineOpsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "animehub_post_engine_ops_total",
					Help: "Post interaction operations by kind and outcome",
				},
				[]string{"op", "outcome"},
			),
			EngineOpDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "animehub_post_engine_op_duration_seconds",
					Help:    "Post interaction latency including the store round trip",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"op"},
			),
			EnginesActive: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "animehub_post_engines_active",
					Help: "Post engines currently attached to a session",
				},
			),
			LikeWaitDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "animehub_like_wait_seconds",
					Help:    "Time a like toggle waited behind an in-flight toggle on the same post",
					Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
				},
			),
			StoreFailuresTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "animehub_store_failures_total",
					Help: "Remote store calls that failed",
				},
				[]string{"op"},
			),
			AuthAttemptsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "animehub_auth_attempts_total",
					Help: "Login and registration attempts by result",
				},
				[]string{"action", "result"},
			),
		}
	})
	return instance
}

// Get returns the metrics instance, initializing it on first use.
func Get() *Metrics {
	return Initialize()
}

// RecordEngineOp counts one post engine operation.
func RecordEngineOp(op, outcome string, seconds float64) {
	m := Get()
	m.EngineOpsTotal.WithLabelValues(op, outcome).Inc()
	if outcome != OutcomeRejected {
		m.EngineOpDuration.WithLabelValues(op).Observe(seconds)
	}
}

// RecordStoreFailure counts a failed remote store call.
func RecordStoreFailure(op string) {
	Get().StoreFailuresTotal.WithLabelValues(op).Inc()
}

// RecordAuth counts a login or registration attempt.
func RecordAuth(action, result string) {
	Get().AuthAttemptsTotal.WithLabelValues(action, result).Inc()
}
