package handlers

import (
	"net/http"

	"github.com/swa/agilemetrics/internal/metrics"
)

/* MetricsHandlers serves the in-process request and computation stats */
type MetricsHandlers struct {
	metrics *metrics.Metrics
}

/* NewMetricsHandlers creates new metrics handlers */
func NewMetricsHandlers(m *metrics.Metrics) *MetricsHandlers {
	if m == nil {
		m = metrics.GetGlobalMetrics()
	}
	return &MetricsHandlers{
		metrics: m,
	}
}

/* GetMetrics returns current metrics */
func (h *MetricsHandlers) GetMetrics(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.metrics.GetStats(), http.StatusOK)
}

/* ResetMetrics resets all metrics */
func (h *MetricsHandlers) ResetMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.Reset()
	WriteSuccess(w, map[string]string{"message": "Metrics reset"}, http.StatusOK)
}
