package initialization

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/swa/agilemetrics/internal/config"
	"github.com/swa/agilemetrics/internal/db"
	"github.com/swa/agilemetrics/internal/flow"
	"github.com/swa/agilemetrics/internal/logging"
	"github.com/swa/agilemetrics/internal/validation"
)

// Minimum JWT secret length that does not trigger a warning
const minSecretLength = 32

/* Validator validates configuration before anything connects */
type Validator struct {
	logger *logging.Logger
}

/* NewValidator creates a new validator instance */
func NewValidator(logger *logging.Logger) *Validator {
	return &Validator{
		logger: logger,
	}
}

/* ValidationResult represents the result of validation */
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

func newResult() ValidationResult {
	return ValidationResult{
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
	}
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) merge(other ValidationResult) {
	if !other.Valid {
		r.Valid = false
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

/* ValidateDatabase checks the driver, the connection string and the relation names */
func (v *Validator) ValidateDatabase(cfg config.DatabaseConfig) ValidationResult {
	result := newResult()

	switch cfg.Driver {
	case db.DriverPostgres, db.DriverSQLite:
	default:
		result.fail("Unsupported database driver: %q (expected %s or %s)", cfg.Driver, db.DriverPostgres, db.DriverSQLite)
		return result
	}

	dsn, err := cfg.DSN()
	if err != nil {
		result.fail("Database connection: %v", err)
	} else if cfg.Driver == db.DriverPostgres {
		dsnResult := validation.ValidateDSN(dsn)
		if !dsnResult.Valid {
			result.fail("Invalid DSN: %s", dsnResult.Error)
		}
		for _, w := range dsnResult.Warnings {
			result.warn("%s", w)
		}
		if cfg.Port != "" && cfg.URL == "" && !isValidPort(cfg.Port) {
			result.fail("Invalid database port: %s", cfg.Port)
		}
	}

	if err := validation.ValidateIdentifier("column_status_table", cfg.ColumnStatusTable); err != nil {
		result.fail("%v", err)
	}
	if err := validation.ValidateIdentifier("daily_flow_table", cfg.DailyFlowTable); err != nil {
		result.fail("%v", err)
	}

	if cfg.MaxIdleConns > cfg.MaxOpenConns && cfg.MaxOpenConns > 0 {
		result.warn("max_idle_conns (%d) exceeds max_open_conns (%d)", cfg.MaxIdleConns, cfg.MaxOpenConns)
	}
	return result
}

/* ValidateServer checks the listen address and timeouts */
func (v *Validator) ValidateServer(cfg config.ServerConfig) ValidationResult {
	result := newResult()
	if !isValidPort(cfg.Port) || cfg.Port == "" {
		result.fail("Invalid server port: %q", cfg.Port)
	}
	if cfg.ShutdownTimeout <= 0 {
		result.warn("Shutdown timeout is not positive; in-flight requests will be cut off")
	}
	if cfg.MaxBodyBytes <= 0 {
		result.warn("Request body size is unlimited")
	}
	return result
}

/* ValidateAuth checks the auth mode and its secret */
func (v *Validator) ValidateAuth(cfg config.AuthConfig) ValidationResult {
	result := newResult()
	switch cfg.Mode {
	case "none":
		result.warn("Authentication is disabled")
	case "jwt":
		if cfg.JWTSecret == "" {
			result.fail("JWT_SECRET is required when AUTH_MODE=jwt")
		} else if len(cfg.JWTSecret) < minSecretLength {
			result.warn("JWT secret is shorter than %d bytes", minSecretLength)
		}
	default:
		result.fail("Unsupported auth mode: %q (expected none or jwt)", cfg.Mode)
	}
	return result
}

/* ValidateFlow checks the dashboard selection defaults */
func (v *Validator) ValidateFlow(cfg config.FlowConfig) ValidationResult {
	result := newResult()
	if _, err := flow.ParseBoundMode(cfg.HourlyBound); err != nil {
		result.fail("%v", err)
	}
	seen := make(map[string]bool, len(cfg.DefaultExcluded))
	for _, name := range cfg.DefaultExcluded {
		if strings.TrimSpace(name) == "" {
			result.fail("Default exclusions contain a blank column name")
			continue
		}
		if seen[name] {
			result.warn("Column %q is excluded twice", name)
		}
		seen[name] = true
	}
	return result
}

/* ValidateRateLimit checks the per-client limit */
func (v *Validator) ValidateRateLimit(cfg config.RateLimitConfig) ValidationResult {
	result := newResult()
	if !cfg.Enabled {
		return result
	}
	if cfg.Requests <= 0 {
		result.fail("Rate limit requests must be positive, got %d", cfg.Requests)
	}
	if cfg.Window <= 0 {
		result.fail("Rate limit window must be positive, got %s", cfg.Window)
	}
	return result
}

/* ValidateConfig performs all configuration checks */
func (v *Validator) ValidateConfig(cfg *config.Config) ValidationResult {
	result := newResult()
	result.merge(v.ValidateDatabase(cfg.Database))
	result.merge(v.ValidateServer(cfg.Server))
	result.merge(v.ValidateAuth(cfg.Auth))
	result.merge(v.ValidateFlow(cfg.Flow))
	result.merge(v.ValidateRateLimit(cfg.RateLimit))

	// A reload answers only after its queries finish
	if cfg.Server.WriteTimeout > 0 && cfg.Server.WriteTimeout < cfg.Database.QueryTimeout {
		result.warn("Server write timeout %s is shorter than query timeout %s; slow snapshot reloads cannot be answered",
			cfg.Server.WriteTimeout, cfg.Database.QueryTimeout)
	}

	for _, w := range result.Warnings {
		v.logger.Warn("Configuration warning", map[string]interface{}{"warning": w})
	}
	return result
}

var portRegex = regexp.MustCompile(`^[0-9]{1,5}$`)

/* isValidPort checks if a port string is valid */
func isValidPort(port string) bool {
	if port == "" {
		return true // Port is optional
	}
	if !portRegex.MatchString(port) {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}
