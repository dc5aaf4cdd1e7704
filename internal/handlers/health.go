package handlers

import (
	"net/http"
	"time"

	"github.com/swa/agilemetrics/internal/initialization"
)

// HealthHandlers serves liveness and readiness
type HealthHandlers struct {
	checker *initialization.HealthChecker
	version string
	started time.Time
}

// NewHealthHandlers creates health handlers
func NewHealthHandlers(checker *initialization.HealthChecker, version string) *HealthHandlers {
	return &HealthHandlers{checker: checker, version: version, started: time.Now()}
}

// Liveness reports that the process is serving
func (h *HealthHandlers) Liveness(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	}, http.StatusOK)
}

// Health runs all checks; an unhealthy result is a 503
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	status := h.checker.CheckAll(r.Context())
	status.Version = h.version

	code := http.StatusOK
	if !status.Overall {
		code = http.StatusServiceUnavailable
	}
	WriteSuccess(w, status, code)
}
