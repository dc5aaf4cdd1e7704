package initialization

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/swa/agilemetrics/internal/config"
	"github.com/swa/agilemetrics/internal/dashboard"
	"github.com/swa/agilemetrics/internal/db"
	"github.com/swa/agilemetrics/internal/logging"
)

// ErrInvalidConfig wraps configuration validation failures
var ErrInvalidConfig = errors.New("invalid configuration")

// Bootstrap validates configuration, connects and loads the first snapshot
type Bootstrap struct {
	cfg       *config.Config
	logger    *logging.Logger
	validator *Validator
	retry     RetryConfig
}

// Result holds everything a successful bootstrap produced
type Result struct {
	DB      *sqlx.DB
	Queries *db.Queries
	Store   *dashboard.Store
	Health  *HealthChecker
	Metrics *BootstrapMetrics
}

// Close releases the database connection
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// NewBootstrap creates a new bootstrap instance
func NewBootstrap(cfg *config.Config, logger *logging.Logger) *Bootstrap {
	return &Bootstrap{
		cfg:       cfg,
		logger:    logger,
		validator: NewValidator(logger),
		retry:     DefaultRetryConfig(),
	}
}

// WithRetry overrides the retry policy for connecting and loading
func (b *Bootstrap) WithRetry(rc RetryConfig) *Bootstrap {
	b.retry = rc
	return b
}

// Initialize performs all initialization tasks in order. Any failure is
// fatal; the caller decides whether to exit.
func (b *Bootstrap) Initialize(ctx context.Context) (*Result, error) {
	metrics := NewBootstrapMetrics()
	defer func() {
		metrics.Finish()
		metrics.LogMetrics(b.logger)
	}()

	b.logger.Info("Starting application bootstrap sequence", nil)

	// Step 1: configuration
	stepStart := time.Now()
	if validation := b.validator.ValidateConfig(b.cfg); !validation.Valid {
		metrics.TrackStep(StepValidation, time.Since(stepStart), false)
		for _, msg := range validation.Errors {
			b.logger.Error("Validation error", errors.New(msg), nil)
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(validation.Errors, "; "))
	}
	metrics.TrackStep(StepValidation, time.Since(stepStart), true)

	// Step 2: data source (with retry)
	stepStart = time.Now()
	var conn *sqlx.DB
	err := Retry(ctx, b.logger, b.retry, "connect to database", func(ctx context.Context) error {
		var openErr error
		conn, openErr = db.Open(ctx, b.cfg.Database)
		return openErr
	})
	if err != nil {
		metrics.TrackStep(StepDatabase, time.Since(stepStart), false)
		return nil, err
	}
	queries, err := db.NewQueries(conn, db.Tables{
		ColumnStatus: b.cfg.Database.ColumnStatusTable,
		DailyFlow:    b.cfg.Database.DailyFlowTable,
	})
	if err != nil {
		conn.Close()
		metrics.TrackStep(StepDatabase, time.Since(stepStart), false)
		return nil, err
	}
	metrics.TrackStep(StepDatabase, time.Since(stepStart), true)
	b.logger.Info("Database connected", map[string]interface{}{
		"driver":              b.cfg.Database.Driver,
		"column_status_table": b.cfg.Database.ColumnStatusTable,
		"daily_flow_table":    b.cfg.Database.DailyFlowTable,
	})

	// Step 3: first snapshot (with retry)
	stepStart = time.Now()
	store := dashboard.NewStore(queries, b.logger)
	err = Retry(ctx, b.logger, b.retry, "load snapshot", func(ctx context.Context) error {
		loadCtx, cancel := b.queryContext(ctx)
		defer cancel()
		_, loadErr := store.Reload(loadCtx)
		return loadErr
	})
	if err != nil {
		conn.Close()
		metrics.TrackStep(StepSnapshot, time.Since(stepStart), false)
		return nil, err
	}
	metrics.TrackStep(StepSnapshot, time.Since(stepStart), true)

	// Step 4: health
	stepStart = time.Now()
	health := NewHealthChecker(queries, store, 0, b.logger)
	healthStatus := health.CheckAll(ctx)
	metrics.TrackStep(StepHealthCheck, time.Since(stepStart), healthStatus.Overall)
	if !healthStatus.Overall {
		b.logger.Warn("Health check completed with issues", map[string]interface{}{
			"status": healthStatus.Status,
			"checks": healthStatus.Checks,
		})
	} else {
		b.logger.Info("Health check passed", map[string]interface{}{
			"status": healthStatus.Status,
		})
	}

	b.logger.Info("Application bootstrap completed successfully", nil)
	return &Result{
		DB:      conn,
		Queries: queries,
		Store:   store,
		Health:  health,
		Metrics: metrics,
	}, nil
}

func (b *Bootstrap) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.cfg.Database.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.cfg.Database.QueryTimeout)
}
