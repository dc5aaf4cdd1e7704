package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/swa/agilemetrics/internal/logging"
	"github.com/swa/agilemetrics/internal/metrics"
)

// CPU sampling window for a single snapshot request
const cpuSampleWindow = 200 * time.Millisecond

// SystemMetricsHandlers handles system metrics endpoints
type SystemMetricsHandlers struct {
	logger   *logging.Logger
	interval time.Duration
}

// NewSystemMetricsHandlers creates new system metrics handlers; interval is
// the websocket push period.
func NewSystemMetricsHandlers(logger *logging.Logger, interval time.Duration) *SystemMetricsHandlers {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &SystemMetricsHandlers{
		logger:   logger,
		interval: interval,
	}
}

// GetSystemMetrics returns current system metrics
func (h *SystemMetricsHandlers) GetSystemMetrics(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, metrics.CollectSystemMetrics(r.Context(), cpuSampleWindow), http.StatusOK)
}

// SystemMetricsWebSocket streams system metrics until the client goes away
func (h *SystemMetricsHandlers) SystemMetricsWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	metrics.GetGlobalMetrics().AddActiveSockets(1)
	defer metrics.GetGlobalMetrics().AddActiveSockets(-1)

	// The client only sends control frames; reading surfaces its close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := r.Context()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(metrics.CollectSystemMetrics(ctx, 0)); err != nil {
			if !isExpectedClose(err) {
				h.logger.Warn("Failed to write system metrics", map[string]interface{}{"error": err.Error()})
			}
			return
		}

		select {
		case <-ticker.C:
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}

func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
