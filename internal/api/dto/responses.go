package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status                string `json:"status"`
	Timestamp             string `json:"timestamp"`
	CredentialsConfigured bool   `json:"credentials_configured"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse(configured bool) HealthResponse {
	return HealthResponse{
		Status:                "ok",
		Timestamp:             time.Now().UTC().Format(time.RFC3339),
		CredentialsConfigured: configured,
	}
}

// MessageResponse is a generic message response.
type MessageResponse struct {
	Message string `json:"message"`
}

// ConnectionTestResponse is returned by the credential check.
type ConnectionTestResponse struct {
	OK            bool   `json:"ok"`
	MarketplaceID string `json:"marketplace_id"`
	Message       string `json:"message"`
}
