package initialization

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swa/agilemetrics/internal/config"
	"github.com/swa/agilemetrics/internal/dashboard"
	"github.com/swa/agilemetrics/internal/logging"
	testutil "github.com/swa/agilemetrics/internal/testing"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestRetry(t *testing.T) {
	logger := logging.NewNop()

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), logger, fastRetry(3), "flaky", func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("not yet")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up with last error", func(t *testing.T) {
		sentinel := errors.New("down")
		calls := 0
		err := Retry(context.Background(), logger, fastRetry(2), "broken", func(ctx context.Context) error {
			calls++
			return sentinel
		})
		require.ErrorIs(t, err, sentinel)
		assert.Equal(t, 2, calls)
		assert.Contains(t, err.Error(), "broken failed after 2 attempts")
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1}
		calls := 0
		err := Retry(ctx, logger, cfg, "cancelled", func(ctx context.Context) error {
			calls++
			cancel()
			return errors.New("fail")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("zero attempts runs once", func(t *testing.T) {
		calls := 0
		_ = Retry(context.Background(), logger, RetryConfig{}, "once", func(ctx context.Context) error {
			calls++
			return nil
		})
		assert.Equal(t, 1, calls)
	})
}

func TestBootstrapMetrics(t *testing.T) {
	bm := NewBootstrapMetrics()
	assert.Zero(t, bm.SuccessRate())

	bm.TrackStep(StepValidation, time.Millisecond, true)
	bm.TrackStep(StepDatabase, 2*time.Millisecond, true)
	bm.TrackStep(StepSnapshot, 3*time.Millisecond, false)
	bm.TrackStep("unknown", time.Second, true)
	bm.Finish()

	assert.Equal(t, 4, bm.TotalSteps)
	assert.Equal(t, 1, bm.FailedSteps)
	assert.Equal(t, 2*time.Millisecond, bm.DatabaseDuration)
	assert.Equal(t, 3*time.Millisecond, bm.SnapshotDuration)
	assert.InDelta(t, 75.0, bm.SuccessRate(), 1e-9)
	assert.False(t, bm.EndTime.Before(bm.StartTime))
}

func validConfig() *config.Config {
	cfg := config.Default()
	cfg.Database.Host = "db.internal"
	cfg.Database.Name = "kanban"
	cfg.Database.User = "reader"
	return cfg
}

func TestValidator_ValidateConfig(t *testing.T) {
	v := NewValidator(logging.NewNop())

	tests := []struct {
		name      string
		mutate    func(*config.Config)
		wantValid bool
		wantError string
	}{
		{"defaults with host", func(*config.Config) {}, true, ""},
		{"unknown driver", func(c *config.Config) { c.Database.Driver = "mysql" }, false, "Unsupported database driver"},
		{"no database", func(c *config.Config) { c.Database.Host = "" }, false, "database not configured"},
		{"sqlite with dsn", func(c *config.Config) {
			c.Database.Driver = "sqlite"
			c.Database.URL = "file:flow.db"
		}, true, ""},
		{"malicious dsn", func(c *config.Config) {
			c.Database.URL = "postgres://h/db; DROP TABLE x"
		}, false, "Invalid DSN"},
		{"bad table", func(c *config.Config) { c.Database.DailyFlowTable = "flow; --" }, false, "daily_flow_table"},
		{"bad db port", func(c *config.Config) { c.Database.Port = "70000" }, false, "Invalid database port"},
		{"bad server port", func(c *config.Config) { c.Server.Port = "http" }, false, "Invalid server port"},
		{"jwt without secret", func(c *config.Config) { c.Auth.Mode = "jwt" }, false, "JWT_SECRET"},
		{"jwt with secret", func(c *config.Config) {
			c.Auth.Mode = "jwt"
			c.Auth.JWTSecret = strings.Repeat("k", 40)
		}, true, ""},
		{"unknown auth mode", func(c *config.Config) { c.Auth.Mode = "oidc" }, false, "Unsupported auth mode"},
		{"bad hourly bound", func(c *config.Config) { c.Flow.HourlyBound = "half-open" }, false, "bound mode"},
		{"blank exclusion", func(c *config.Config) { c.Flow.DefaultExcluded = []string{"Done", " "} }, false, "blank column"},
		{"zero rate limit", func(c *config.Config) { c.RateLimit.Requests = 0 }, false, "Rate limit requests"},
		{"disabled rate limit ignores values", func(c *config.Config) {
			c.RateLimit.Enabled = false
			c.RateLimit.Window = 0
		}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			result := v.ValidateConfig(cfg)
			assert.Equal(t, tt.wantValid, result.Valid, "errors: %v", result.Errors)
			if tt.wantError != "" {
				assert.Contains(t, strings.Join(result.Errors, "\n"), tt.wantError)
			}
		})
	}
}

func TestValidator_Warnings(t *testing.T) {
	v := NewValidator(logging.NewNop())
	cfg := validConfig()
	cfg.Auth.Mode = "jwt"
	cfg.Auth.JWTSecret = "short"
	cfg.Flow.DefaultExcluded = []string{"Done", "Done"}

	result := v.ValidateConfig(cfg)
	require.True(t, result.Valid, "errors: %v", result.Errors)
	joined := strings.Join(result.Warnings, "\n")
	assert.Contains(t, joined, "shorter than")
	assert.Contains(t, joined, "excluded twice")
}

func TestValidator_WriteTimeoutCoversQueries(t *testing.T) {
	v := NewValidator(logging.NewNop())

	result := v.ValidateConfig(validConfig())
	assert.NotContains(t, strings.Join(result.Warnings, "\n"), "write timeout", "defaults must leave room for a reload")

	cfg := validConfig()
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Database.QueryTimeout = time.Minute
	result = v.ValidateConfig(cfg)
	assert.True(t, result.Valid)
	assert.Contains(t, strings.Join(result.Warnings, "\n"), "write timeout 30s is shorter than query timeout 1m0s")
}

func TestIsValidPort(t *testing.T) {
	for port, want := range map[string]bool{
		"":      true,
		"8050":  true,
		"65535": true,
		"0":     false,
		"65536": false,
		"-1":    false,
		"80a":   false,
	} {
		assert.Equal(t, want, isValidPort(port), "port %q", port)
	}
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthChecker(t *testing.T) {
	logger := logging.NewNop()
	store := dashboard.NewStore(testutil.NewFixtureLoader(), logger)
	ok := pingerFunc(func(context.Context) error { return nil })

	t.Run("no snapshot is unhealthy", func(t *testing.T) {
		status := NewHealthChecker(ok, store, 0, logger).CheckAll(context.Background())
		assert.Equal(t, "unhealthy", status.Status)
		assert.False(t, status.Overall)
		assert.Equal(t, "fail", status.Checks["snapshot"].Status)
		assert.Equal(t, "pass", status.Checks["database"].Status)
	})

	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	t.Run("loaded snapshot passes", func(t *testing.T) {
		status := NewHealthChecker(ok, store, 0, logger).CheckAll(context.Background())
		assert.True(t, status.Overall)
		assert.Equal(t, "pass", status.Checks["snapshot"].Status)
		assert.Contains(t, status.Checks["snapshot"].Message, "12 column status rows")
		assert.Contains(t, status.Checks, "memory")
	})

	t.Run("database down degrades", func(t *testing.T) {
		down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })
		status := NewHealthChecker(down, store, 0, logger).CheckAll(context.Background())
		assert.True(t, status.Overall)
		assert.Equal(t, "degraded", status.Status)
		assert.Equal(t, "warn", status.Checks["database"].Status)
	})

	t.Run("stale snapshot warns", func(t *testing.T) {
		hc := NewHealthChecker(ok, store, time.Minute, logger)
		hc.now = func() time.Time { return time.Now().Add(time.Hour) }
		status := hc.CheckAll(context.Background())
		assert.Equal(t, "warn", status.Checks["snapshot"].Status)
		assert.Contains(t, status.Checks["snapshot"].Message, "old")
	})

	t.Run("no database configured", func(t *testing.T) {
		status := NewHealthChecker(nil, store, 0, logger).CheckAll(context.Background())
		assert.Equal(t, "warn", status.Checks["database"].Status)
	})
}

func TestBootstrap_Initialize(t *testing.T) {
	tdb := testutil.SetupFixtureDB(t)

	cfg := config.Default()
	cfg.Database.Driver = "sqlite"
	cfg.Database.URL = tdb.Path

	result, err := NewBootstrap(cfg, logging.NewNop()).WithRetry(fastRetry(1)).Initialize(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { result.Close() })

	snap, err := result.Store.Current()
	require.NoError(t, err)
	stats := snap.Stats()
	assert.Equal(t, 12, stats.ColumnStatusRows)
	assert.Equal(t, 3, stats.DailyFlowRows)
	assert.Zero(t, result.Metrics.FailedSteps)
	assert.Equal(t, 4, result.Metrics.TotalSteps)
}

func TestBootstrap_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Driver = "oracle"

	result, err := NewBootstrap(cfg, logging.NewNop()).WithRetry(fastRetry(1)).Initialize(context.Background())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBootstrap_MissingTables(t *testing.T) {
	tdb := testutil.SetupTestDB(t)

	cfg := config.Default()
	cfg.Database.Driver = "sqlite"
	cfg.Database.URL = tdb.Path
	cfg.Database.DailyFlowTable = "absent_daily_flow"

	_, err := NewBootstrap(cfg, logging.NewNop()).WithRetry(fastRetry(2)).Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load snapshot failed after 2 attempts")
}
