package dto

import "net/http"

// Error codes surfaced by the API. Domain errors carry these codes directly;
// the HTTP layer only maps them to status codes.
const (
	// ErrCodeQuotaExceeded is used when no quota bucket can absorb a message
	ErrCodeQuotaExceeded = "QUOTA_EXCEEDED"
	// ErrCodeUnsupportedTier is used when a subscription tier is unknown
	ErrCodeUnsupportedTier = "UNSUPPORTED_TIER"
	// ErrCodeSubscriptionNotFound is used when a subscription does not exist or is not active
	ErrCodeSubscriptionNotFound = "SUBSCRIPTION_NOT_FOUND"
	// ErrCodeSubscriptionUserMismatch is used when a subscription belongs to another user
	ErrCodeSubscriptionUserMismatch = "SUBSCRIPTION_USER_MISMATCH"
	// ErrCodeValidation is used for malformed or incomplete requests
	ErrCodeValidation = "VALIDATION"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "INVALID_INPUT"
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "INVALID_STATE"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeQuotaExceeded:            http.StatusTooManyRequests,
	ErrCodeUnsupportedTier:          http.StatusBadRequest,
	ErrCodeSubscriptionNotFound:     http.StatusNotFound,
	ErrCodeSubscriptionUserMismatch: http.StatusForbidden,
	ErrCodeValidation:               http.StatusBadRequest,
	ErrCodeNotFound:                 http.StatusNotFound,
	ErrCodeAlreadyExists:            http.StatusConflict,
	ErrCodeInvalidInput:             http.StatusBadRequest,
	ErrCodeInvalidState:             http.StatusUnprocessableEntity,
	ErrCodeInternal:                 http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
