package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/swa/agilemetrics/internal/handlers"
	"github.com/swa/agilemetrics/internal/initialization"
	"github.com/swa/agilemetrics/internal/middleware"
)

// serveCmd runs the HTTP server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard and JSON API",
	Long: `Load a snapshot from the database and serve it until SIGINT or SIGTERM.

Routes:
  /dashboard              selection form and charts
  /api/v1/flow/report     report for min_date, max_date, exclude, hourly_bound
  /api/v1/flow/ws         the same over a websocket
  /api/v1/snapshot/reload reread the database
  /metrics                Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.Info("Starting agilemetrics server", map[string]interface{}{
		"version": version,
	})

	initCtx, initCancel := context.WithTimeout(cmd.Context(), timeout)
	defer initCancel()

	result, err := initialization.NewBootstrap(cfg, logger).Initialize(initCtx)
	if err != nil {
		logger.Error("Failed to bootstrap application", err, nil)
		return err
	}
	defer result.Close()

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		defer limiter.Stop()
	}

	router, err := handlers.NewRouter(handlers.RouterDeps{
		Config:  cfg,
		Store:   result.Store,
		Health:  result.Health,
		Logger:  logger,
		Limiter: limiter,
		Version: version,
	})
	if err != nil {
		return err
	}

	addr := cfg.Server.Address()
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", map[string]interface{}{
			"address":   addr,
			"auth_mode": cfg.Auth.Mode,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serverErr:
		if ok {
			logger.Error("Server failed", err, nil)
			return err
		}
		return nil
	case sig := <-quit:
		logger.Info("Shutting down server", map[string]interface{}{"signal": sig.String()})
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", err, nil)
		return err
	}

	logger.Info("Server stopped", nil)
	return nil
}
