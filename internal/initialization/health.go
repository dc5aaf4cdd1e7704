package initialization

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/swa/agilemetrics/internal/dashboard"
	"github.com/swa/agilemetrics/internal/logging"
)

// Memory usage above which the host check warns
const memoryWarnPercent = 90.0

/* Pinger is satisfied by *db.Queries */
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker checks the data source, the loaded snapshot and the host
type HealthChecker struct {
	pinger         Pinger
	store          *dashboard.Store
	logger         *logging.Logger
	maxSnapshotAge time.Duration
	now            func() time.Time
}

// NewHealthChecker creates a new health checker instance. A maxSnapshotAge
// of zero disables the staleness warning.
func NewHealthChecker(pinger Pinger, store *dashboard.Store, maxSnapshotAge time.Duration, logger *logging.Logger) *HealthChecker {
	return &HealthChecker{
		pinger:         pinger,
		store:          store,
		logger:         logger,
		maxSnapshotAge: maxSnapshotAge,
		now:            time.Now,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string                 `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
	Overall   bool                   `json:"overall"`
	Version   string                 `json:"version,omitempty"`
}

// CheckResult represents the result of an individual health check
type CheckResult struct {
	Status      string        `json:"status"` // "pass", "warn", "fail"
	Message     string        `json:"message"`
	Duration    time.Duration `json:"duration"`
	LastChecked time.Time     `json:"last_checked"`
}

// CheckAll performs all health checks
func (hc *HealthChecker) CheckAll(ctx context.Context) HealthStatus {
	checks := map[string]CheckResult{
		"database": hc.checkDatabase(ctx),
		"snapshot": hc.checkSnapshot(),
		"memory":   hc.checkMemory(ctx),
	}

	overall := true
	status := "healthy"
	for _, check := range checks {
		if check.Status == "fail" {
			overall = false
			status = "unhealthy"
			break
		} else if check.Status == "warn" && status == "healthy" {
			status = "degraded"
		}
	}

	return HealthStatus{
		Status:    status,
		Timestamp: hc.now(),
		Checks:    checks,
		Overall:   overall,
	}
}

func (hc *HealthChecker) result(status, message string, start time.Time) CheckResult {
	return CheckResult{
		Status:      status,
		Message:     message,
		Duration:    time.Since(start),
		LastChecked: hc.now(),
	}
}

// checkDatabase pings the data source. The dashboard serves from the
// snapshot, so an unreachable database only degrades the service.
func (hc *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	start := time.Now()
	if hc.pinger == nil {
		return hc.result("warn", "No database configured", start)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := hc.pinger.Ping(pingCtx); err != nil {
		hc.logger.Warn("Database ping failed", map[string]interface{}{"error": err.Error()})
		return hc.result("warn", fmt.Sprintf("Database ping failed: %v", err), start)
	}
	return hc.result("pass", "Database connection is healthy", start)
}

// checkSnapshot fails when nothing has been loaded yet
func (hc *HealthChecker) checkSnapshot() CheckResult {
	start := time.Now()
	snap, err := hc.store.Current()
	if err != nil {
		return hc.result("fail", "No snapshot loaded", start)
	}

	stats := snap.Stats()
	if stats.ColumnStatusRows == 0 && stats.DailyFlowRows == 0 {
		return hc.result("warn", "Snapshot is empty", start)
	}
	if age := hc.now().Sub(stats.LoadedAt); hc.maxSnapshotAge > 0 && age > hc.maxSnapshotAge {
		return hc.result("warn", fmt.Sprintf("Snapshot is %s old", age.Round(time.Second)), start)
	}
	return hc.result("pass", fmt.Sprintf("Snapshot has %d column status rows and %d daily rows",
		stats.ColumnStatusRows, stats.DailyFlowRows), start)
}

func (hc *HealthChecker) checkMemory(ctx context.Context) CheckResult {
	start := time.Now()
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return hc.result("warn", fmt.Sprintf("Memory stats unavailable: %v", err), start)
	}
	if vm.UsedPercent > memoryWarnPercent {
		return hc.result("warn", fmt.Sprintf("Memory usage at %.1f%%", vm.UsedPercent), start)
	}
	return hc.result("pass", fmt.Sprintf("Memory usage at %.1f%%", vm.UsedPercent), start)
}
