package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/swa/agilemetrics/internal/dashboard"
	"github.com/swa/agilemetrics/internal/logging"
	"github.com/swa/agilemetrics/internal/middleware"
)

/* SnapshotHandlers expose the loaded snapshot and reload it on demand */
type SnapshotHandlers struct {
	store   *dashboard.Store
	timeout time.Duration
	logger  *logging.Logger
}

/* NewSnapshotHandlers creates snapshot handlers; timeout bounds a reload */
func NewSnapshotHandlers(store *dashboard.Store, timeout time.Duration, logger *logging.Logger) *SnapshotHandlers {
	return &SnapshotHandlers{store: store, timeout: timeout, logger: logger}
}

/* GetSnapshot describes the active snapshot */
func (h *SnapshotHandlers) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Current()
	if err != nil {
		WriteRequestError(w, r, err)
		return
	}
	WriteSuccess(w, snap.Stats(), http.StatusOK)
}

/* Reload reads the data source again; on failure the previous snapshot stays */
func (h *SnapshotHandlers) Reload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	snap, err := h.store.Reload(ctx)
	if err != nil {
		h.logger.Warn("Snapshot reload failed", map[string]interface{}{
			"request_id": middleware.GetRequestID(r.Context()),
			"error":      err.Error(),
		})
		writeErrorResponse(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:     http.StatusText(http.StatusServiceUnavailable),
			Message:   err.Error(),
			Code:      CodeDataSource,
			RequestID: middleware.GetRequestID(r.Context()),
		})
		return
	}
	WriteSuccess(w, snap.Stats(), http.StatusOK)
}
