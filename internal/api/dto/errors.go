package dto

// APIError represents a structured error response.
// All error responses from the API use this format for consistency.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Details lists offending inputs, e.g. malformed ASINs
	Details []string `json:"details,omitempty"`
}

// Common error codes
const (
	ErrCodeNotFound         = "not_found"
	ErrCodeBadRequest       = "bad_request"
	ErrCodeInternalError    = "internal_error"
	ErrCodeValidation       = "validation_error"
	ErrCodeConflict         = "analysis_conflict"
	ErrCodeCancelFailed     = "cancel_failed"
	ErrCodeNotConfigured    = "credentials_not_configured"
	ErrCodeConnectionFailed = "connection_failed"
)

// NewAPIError creates a new APIError with the given code and message.
func NewAPIError(code, message string) APIError {
	return APIError{
		Code:    code,
		Message: message,
	}
}

// NotFoundError creates a not found error response.
func NotFoundError(resource string) APIError {
	return NewAPIError(ErrCodeNotFound, resource+" not found")
}

// BadRequestError creates a bad request error response.
func BadRequestError(message string) APIError {
	return NewAPIError(ErrCodeBadRequest, message)
}

// InternalError creates an internal server error response.
func InternalError() APIError {
	return NewAPIError(ErrCodeInternalError, "an internal error occurred")
}

// ValidationError creates a validation error response listing the bad inputs.
func ValidationError(message string, details ...string) APIError {
	err := NewAPIError(ErrCodeValidation, message)
	err.Details = details
	return err
}
