package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/swa/agilemetrics/internal/auth"
	"github.com/swa/agilemetrics/internal/charts"
	"github.com/swa/agilemetrics/internal/config"
	"github.com/swa/agilemetrics/internal/dashboard"
	"github.com/swa/agilemetrics/internal/initialization"
	"github.com/swa/agilemetrics/internal/logging"
	"github.com/swa/agilemetrics/internal/metrics"
	"github.com/swa/agilemetrics/internal/middleware"
)

/* RouterDeps are the collaborators the HTTP surface is built from */
type RouterDeps struct {
	Config  *config.Config
	Store   *dashboard.Store
	Health  *initialization.HealthChecker
	Logger  *logging.Logger
	Limiter *middleware.RateLimiter // nil disables rate limiting
	Version string
}

/* NewRouter wires every route and middleware */
func NewRouter(deps RouterDeps) (http.Handler, error) {
	cfg := deps.Config
	defaults, err := dashboard.NewDefaults(cfg.Flow.DefaultExcluded, cfg.Flow.HourlyBound)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RecoveryMiddleware(deps.Logger))
	router.Use(middleware.LoggingMiddleware(deps.Logger))
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.RequestSizeMiddleware(cfg.Server.MaxBodyBytes))

	protect := func(h http.Handler) http.Handler { return h }
	if cfg.Auth.Mode == "jwt" {
		protect = auth.JWTMiddleware([]byte(cfg.Auth.JWTSecret))
	}

	/* Public */
	health := NewHealthHandlers(deps.Health, deps.Version)
	router.HandleFunc("/health", health.Liveness).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")
	router.Handle("/", http.RedirectHandler("/dashboard", http.StatusFound)).Methods("GET")

	/* API */
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(protect)
	if deps.Limiter != nil {
		api.Use(middleware.RateLimitMiddleware(deps.Limiter))
	}
	api.HandleFunc("/health", health.Health).Methods("GET")

	flowHandlers := NewFlowHandlers(deps.Store, defaults, deps.Logger)
	api.HandleFunc("/flow/extent", flowHandlers.GetExtent).Methods("GET")
	api.HandleFunc("/flow/report", flowHandlers.GetReport).Methods("GET")
	api.HandleFunc("/flow/lead-time", flowHandlers.GetLeadTime).Methods("GET")
	api.HandleFunc("/flow/ws", flowHandlers.FlowWebSocket).Methods("GET")

	snapshotHandlers := NewSnapshotHandlers(deps.Store, cfg.Database.QueryTimeout, deps.Logger)
	api.HandleFunc("/snapshot", snapshotHandlers.GetSnapshot).Methods("GET")
	api.HandleFunc("/snapshot/reload", snapshotHandlers.Reload).Methods("POST")

	metricsHandlers := NewMetricsHandlers(metrics.GetGlobalMetrics())
	api.HandleFunc("/metrics", metricsHandlers.GetMetrics).Methods("GET")
	api.HandleFunc("/metrics/reset", metricsHandlers.ResetMetrics).Methods("POST")

	systemHandlers := NewSystemMetricsHandlers(deps.Logger, 2*time.Second)
	api.HandleFunc("/system-metrics", systemHandlers.GetSystemMetrics).Methods("GET")
	api.HandleFunc("/system-metrics/ws", systemHandlers.SystemMetricsWebSocket).Methods("GET")

	/* Dashboard */
	dashboardHandlers := NewDashboardHandlers(flowHandlers, charts.Options{
		PageTitle:  "Agile Metrics",
		AssetsHost: cfg.Flow.ChartAssetsHost,
	}, deps.Logger)
	router.Handle("/dashboard", protect(http.HandlerFunc(dashboardHandlers.Page))).Methods("GET")
	router.Handle("/dashboard/charts", protect(http.HandlerFunc(dashboardHandlers.Charts))).Methods("GET")

	// CORS wraps the router so preflight requests never reach route matching
	return middleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders)(router), nil
}
