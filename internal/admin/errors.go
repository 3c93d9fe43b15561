package admin

import (
	"encoding/json"
	"net/http"
)

// Standard error codes for API responses.
const (
	// ErrCodeInvalidRequest indicates a malformed request body.
	ErrCodeInvalidRequest = "invalid_request"

	// ErrCodeValidationFailed indicates a well-formed body with rejected fields.
	ErrCodeValidationFailed = "validation_failed"

	// ErrCodeInvalidCredentials indicates an invalid or missing API token.
	ErrCodeInvalidCredentials = "invalid_credentials"

	// ErrCodeCredentialExpired indicates an API token past its expiry.
	ErrCodeCredentialExpired = "credential_expired"

	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound = "not_found"

	// ErrCodeIssuanceFailed indicates no unique token could be generated.
	ErrCodeIssuanceFailed = "issuance_failed"

	// ErrCodeInternalError indicates a server error.
	ErrCodeInternalError = "internal_error"
)

// APIError is the standard error response format for JSON APIs.
type APIError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// WriteError writes a JSON error response with the given status code, error code, and message.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorWithHint(w, status, code, message, "")
}

// WriteErrorWithHint writes a JSON error response with an optional hint for resolving the error.
func WriteErrorWithHint(w http.ResponseWriter, status int, code, message, hint string) {
	writeJSON(w, status, APIError{
		Error:   code,
		Message: message,
		Hint:    hint,
	})
}

// writeJSON writes v as the JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding errors are not critical since headers are already sent
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck
}
