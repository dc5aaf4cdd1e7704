package validation

import (
	"fmt"
	"net/url"
	"strings"
)

/* DSNValidationResult represents the result of DSN validation */
type DSNValidationResult struct {
	Valid    bool
	Error    string
	Warnings []string
}

var maliciousPatterns = []string{";", "&&", "||", "`", "$(", "${"}

/* ValidateDSN validates a PostgreSQL DSN in key=value or URL form */
func ValidateDSN(dsn string) DSNValidationResult {
	result := DSNValidationResult{
		Valid:    true,
		Warnings: []string{},
	}

	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		result.Valid = false
		result.Error = "DSN cannot be empty"
		return result
	}

	for _, pattern := range maliciousPatterns {
		if strings.Contains(dsn, pattern) {
			result.Valid = false
			result.Error = fmt.Sprintf("DSN contains potentially malicious pattern: %s", pattern)
			return result
		}
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		parsed, err := url.Parse(dsn)
		if err != nil {
			result.Valid = false
			result.Error = fmt.Sprintf("invalid DSN URL: %v", err)
			return result
		}
		if parsed.Hostname() == "" {
			result.Valid = false
			result.Error = "DSN host is empty"
			return result
		}
		if strings.TrimPrefix(parsed.Path, "/") == "" {
			result.Warnings = append(result.Warnings, "DSN database name is empty")
		}
		return result
	}

	/* Key/value form must name host, user and dbname */
	dsnLower := strings.ToLower(dsn)
	for _, req := range []string{"host=", "user=", "dbname="} {
		if !strings.Contains(dsnLower, req) {
			result.Valid = false
			result.Error = fmt.Sprintf("DSN is missing required component: %s", strings.TrimSuffix(req, "="))
			return result
		}
	}
	if !strings.Contains(dsnLower, "sslmode=") {
		result.Warnings = append(result.Warnings, "DSN does not set sslmode")
	}

	return result
}
