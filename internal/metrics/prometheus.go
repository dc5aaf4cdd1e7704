package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agilemetrics_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agilemetrics_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Snapshot metrics
	snapshotRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agilemetrics_snapshot_rows",
			Help: "Rows held in the current snapshot by relation",
		},
		[]string{"relation"},
	)

	snapshotLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agilemetrics_snapshot_load_duration_seconds",
			Help:    "Time taken to load a snapshot from the data source",
			Buckets: prometheus.DefBuckets,
		},
	)

	snapshotLoadFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agilemetrics_snapshot_load_failures_total",
			Help: "Snapshot loads that failed",
		},
	)

	snapshotLoadedAt = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agilemetrics_snapshot_loaded_timestamp_seconds",
			Help: "Unix time of the last successful snapshot load",
		},
	)

	// Flow computation metrics
	computationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agilemetrics_flow_computations_total",
			Help: "Flow metric computation passes",
		},
	)

	notComputableTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agilemetrics_flow_not_computable_total",
			Help: "Lead time metrics that had no defined value",
		},
		[]string{"metric"},
	)
)

// StatusClass buckets a status code as 2xx, 3xx, 4xx or 5xx
func StatusClass(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint string, statusCode int, durationSeconds float64) {
	httpRequestsTotal.WithLabelValues(method, endpoint, StatusClass(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordSnapshotLoad records one load attempt
func RecordSnapshotLoad(durationSeconds float64, ok bool) {
	snapshotLoadDuration.Observe(durationSeconds)
	if !ok {
		snapshotLoadFailures.Inc()
	}
}

// SetSnapshot publishes the size and time of the active snapshot
func SetSnapshot(columnStatusRows, dailyFlowRows int, loadedAtUnix float64) {
	snapshotRows.WithLabelValues("column_status").Set(float64(columnStatusRows))
	snapshotRows.WithLabelValues("daily_flow").Set(float64(dailyFlowRows))
	snapshotLoadedAt.Set(loadedAtUnix)
}

// RecordComputation counts one computation pass
func RecordComputation() {
	computationsTotal.Inc()
}

// RecordNotComputable counts a metric that had no defined value
func RecordNotComputable(metric string) {
	notComputableTotal.WithLabelValues(metric).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
