package initialization

import (
	"context"
	"fmt"
	"time"

	"github.com/swa/agilemetrics/internal/logging"
)

// RetryConfig defines retry behavior
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns the retry policy used at startup
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     15 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryableFunc is a function that can be retried
type RetryableFunc func(ctx context.Context) error

// Retry runs fn until it succeeds, the attempts run out or ctx is done.
func Retry(ctx context.Context, logger *logging.Logger, config RetryConfig, operation string, fn RetryableFunc) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		logger.Debug("Attempting operation", map[string]interface{}{
			"operation":    operation,
			"attempt":      attempt,
			"max_attempts": config.MaxAttempts,
		})

		attemptErr := fn(ctx)
		if attemptErr == nil {
			if attempt > 1 {
				logger.Info("Operation succeeded after retry", map[string]interface{}{
					"operation": operation,
					"attempts":  attempt,
				})
			}
			return nil
		}

		lastErr = attemptErr
		logger.Warn("Operation failed", map[string]interface{}{
			"operation":    operation,
			"attempt":      attempt,
			"max_attempts": config.MaxAttempts,
			"error":        attemptErr.Error(),
		})

		// Don't wait after the last attempt
		if attempt < config.MaxAttempts {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
				delay = time.Duration(float64(delay) * config.Multiplier)
				if config.MaxDelay > 0 && delay > config.MaxDelay {
					delay = config.MaxDelay
				}
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, config.MaxAttempts, lastErr)
}
