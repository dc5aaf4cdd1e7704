package initialization

import (
	"time"

	"github.com/swa/agilemetrics/internal/logging"
)

// Bootstrap step names
const (
	StepValidation  = "validation"
	StepDatabase    = "database"
	StepSnapshot    = "snapshot"
	StepHealthCheck = "health_check"
)

/* BootstrapMetrics tracks how long each startup step took */
type BootstrapMetrics struct {
	StartTime           time.Time
	EndTime             time.Time
	Duration            time.Duration
	ValidationDuration  time.Duration
	DatabaseDuration    time.Duration
	SnapshotDuration    time.Duration
	HealthCheckDuration time.Duration
	TotalSteps          int
	SuccessfulSteps     int
	FailedSteps         int
}

/* NewBootstrapMetrics creates a new metrics tracker */
func NewBootstrapMetrics() *BootstrapMetrics {
	return &BootstrapMetrics{
		StartTime: time.Now(),
	}
}

/* Finish marks the bootstrap as complete */
func (bm *BootstrapMetrics) Finish() {
	bm.EndTime = time.Now()
	bm.Duration = bm.EndTime.Sub(bm.StartTime)
}

// SuccessRate is the percentage of tracked steps that succeeded
func (bm *BootstrapMetrics) SuccessRate() float64 {
	if bm.TotalSteps == 0 {
		return 0
	}
	return float64(bm.SuccessfulSteps) / float64(bm.TotalSteps) * 100
}

/* LogMetrics logs the bootstrap metrics */
func (bm *BootstrapMetrics) LogMetrics(logger *logging.Logger) {
	logger.Info("Bootstrap metrics", map[string]interface{}{
		"total_duration":        bm.Duration.String(),
		"validation_duration":   bm.ValidationDuration.String(),
		"database_duration":     bm.DatabaseDuration.String(),
		"snapshot_duration":     bm.SnapshotDuration.String(),
		"health_check_duration": bm.HealthCheckDuration.String(),
		"total_steps":           bm.TotalSteps,
		"successful_steps":      bm.SuccessfulSteps,
		"failed_steps":          bm.FailedSteps,
		"success_rate":          bm.SuccessRate(),
	})
}

/* TrackStep records one step execution */
func (bm *BootstrapMetrics) TrackStep(name string, duration time.Duration, success bool) {
	bm.TotalSteps++
	if success {
		bm.SuccessfulSteps++
	} else {
		bm.FailedSteps++
	}

	switch name {
	case StepValidation:
		bm.ValidationDuration = duration
	case StepDatabase:
		bm.DatabaseDuration = duration
	case StepSnapshot:
		bm.SnapshotDuration = duration
	case StepHealthCheck:
		bm.HealthCheckDuration = duration
	}
}
