package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// Run statuses
const (
	RunStatusRunning             = "running"
	RunStatusCompleted           = "completed"
	RunStatusCompletedWithErrors = "completed_with_errors"
	RunStatusFailed              = "failed"
	RunStatusCancelled           = "cancelled"
)

// Run item statuses
const (
	ItemStatusAnalyzed = "analyzed"
	ItemStatusFailed   = "failed"
)

// Run is one batch analysis
type Run struct {
	ID              string     `json:"id"`
	Source          string     `json:"source"` // "cli" or "api"
	MarketplaceID   string     `json:"marketplace_id"`
	IdentifierCount int        `json:"identifier_count"`
	Status          string     `json:"status"`
	OutputPath      string     `json:"output_path,omitempty"`
	TotalCount      int        `json:"total_count"`
	SuccessCount    int        `json:"success_count"`
	ErrorCount      int        `json:"error_count"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// RunOutcome is what CompleteRun records.
// A completed status with errors is stored as completed_with_errors.
type RunOutcome struct {
	Status       string
	OutputPath   string
	TotalCount   int
	SuccessCount int
	ErrorCount   int
	ErrorMessage string
}

// RunItem is the terminal state of one ASIN in a run
type RunItem struct {
	RunID        string    `json:"run_id"`
	Position     int       `json:"position"`
	ASIN         string    `json:"asin"`
	Status       string    `json:"status"`
	OfferCount   int       `json:"offer_count"`
	HasWinner    bool      `json:"has_winner"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// APICall is one upstream attempt
type APICall struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	ASIN       string    `json:"asin"`
	Operation  string    `json:"operation"`
	Attempt    int       `json:"attempt"`
	StatusCode int       `json:"status_code"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	CalledAt   time.Time `json:"called_at"`
}
