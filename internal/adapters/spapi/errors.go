package spapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrCredentialsNotConfigured is returned when any of the refresh token,
// client id or client secret is missing.
var ErrCredentialsNotConfigured = errors.New("SP-API credentials not configured")

// ErrorDetail is one entry of the SP-API "errors" array
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// APIError is a non-2xx response from the Selling Partner API
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" && e.Message == "" {
		return fmt.Sprintf("SP-API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("SP-API error: status %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// Transient reports whether the request may succeed if repeated
func (e *APIError) Transient() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsNotFound reports whether err is an SP-API 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsTransient reports whether err is a throttling or temporary
// unavailability response. Anything else is terminal.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	return false
}

// StatusCode extracts the HTTP status from err, or 0 if err is not an APIError
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// parseAPIError builds an APIError from a response body.
// Bodies that are not SP-API error documents keep only the status code.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var doc struct {
		Errors []ErrorDetail `json:"errors"`
	}
	if err := json.Unmarshal(body, &doc); err != nil || len(doc.Errors) == 0 {
		apiErr.Message = strings.TrimSpace(string(body))
		if len(apiErr.Message) > 200 {
			apiErr.Message = apiErr.Message[:200]
		}
		return apiErr
	}

	apiErr.Code = doc.Errors[0].Code
	apiErr.Message = doc.Errors[0].Message
	return apiErr
}
