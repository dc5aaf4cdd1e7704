package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/swa/agilemetrics/internal/logging"
	"github.com/swa/agilemetrics/internal/metrics"
)

// RecoveryMiddleware recovers from panics
func RecoveryMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					metrics.GetGlobalMetrics().RecordError("panic")
					logger.Error("Panic recovered", fmt.Errorf("%v", rec), map[string]interface{}{
						"path":       r.URL.Path,
						"request_id": GetRequestID(r.Context()),
						"stack":      string(debug.Stack()),
					})

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]interface{}{
						"error":      "Internal server error",
						"code":       http.StatusInternalServerError,
						"request_id": GetRequestID(r.Context()),
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
