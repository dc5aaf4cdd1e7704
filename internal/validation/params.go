package validation

import (
	"regexp"
	"strings"
	"time"
)

// DateLayout is the wire format of calendar dates in query parameters and
// reports.
const DateLayout = "2006-01-02"

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

/* ParseDate parses an optional YYYY-MM-DD value; the empty string yields the zero time */
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, NewError(field, "must be a date in YYYY-MM-DD format, got %q", value)
	}
	return t, nil
}

/* FormatDate formats a date for the wire; the zero time is the empty string */
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

/* ValidateIdentifier checks a SQL table name, optionally schema-qualified */
func ValidateIdentifier(field, name string) error {
	if name == "" {
		return NewError(field, "is required")
	}
	if !identifierRegex.MatchString(name) {
		return NewError(field, "must be an identifier such as schema.table, got %q", name)
	}
	return nil
}

/* CleanList trims entries and drops empty ones */
func CleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
