package validation

import (
	"strings"

	"github.com/google/uuid"
)

/* ValidateUUID checks that s is a canonical UUID, such as a request ID */
func ValidateUUID(s, field string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return NewError(field, "is required")
	}
	if _, err := uuid.Parse(s); err != nil || len(s) != 36 {
		return NewError(field, "must be a UUID, got %q", s)
	}
	return nil
}
