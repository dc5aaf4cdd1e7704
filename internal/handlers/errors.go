package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/swa/agilemetrics/internal/auth"
	"github.com/swa/agilemetrics/internal/dashboard"
	"github.com/swa/agilemetrics/internal/middleware"
	"github.com/swa/agilemetrics/internal/validation"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Message   string                 `json:"message,omitempty"`
	Code      string                 `json:"code,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// Error codes carried in ErrorResponse.Code
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNoSnapshot = "NO_SNAPSHOT"
	CodeDataSource = "DATA_SOURCE_ERROR"
	CodeInternal   = "INTERNAL_ERROR"

	// Written by the auth and rate limit middleware
	CodeUnauthorized = auth.CodeUnauthorized
	CodeRateLimited  = middleware.CodeRateLimited
)

// StatusFor maps an error to the HTTP status it is reported with
func StatusFor(err error) int {
	if _, ok := validation.AsValidationError(err); ok {
		return http.StatusBadRequest
	}
	if errors.Is(err, dashboard.ErrNoSnapshot) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func newErrorResponse(statusCode int, err error, details map[string]interface{}) ErrorResponse {
	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: err.Error(),
		Details: details,
	}

	if validationErr, ok := validation.AsValidationError(err); ok {
		response.Code = CodeValidation
		response.Details = map[string]interface{}{
			"field":   validationErr.Field,
			"message": validationErr.Message,
		}
	} else if errors.Is(err, dashboard.ErrNoSnapshot) {
		response.Code = CodeNoSnapshot
	} else if statusCode >= 500 {
		response.Code = CodeInternal
	}
	return response
}

// WriteError writes an error response
func WriteError(w http.ResponseWriter, statusCode int, err error, details map[string]interface{}) {
	writeErrorResponse(w, statusCode, newErrorResponse(statusCode, err, details))
}

// WriteRequestError writes err with the status StatusFor picks, tagged
// with the request ID.
func WriteRequestError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := StatusFor(err)
	response := newErrorResponse(statusCode, err, nil)
	response.RequestID = middleware.GetRequestID(r.Context())
	writeErrorResponse(w, statusCode, response)
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, response ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// WriteSuccess writes a success response
func WriteSuccess(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}
