package dto

// RunResponse represents a recorded analysis run.
type RunResponse struct {
	ID              string `json:"id"`
	Source          string `json:"source"`
	MarketplaceID   string `json:"marketplace_id"`
	IdentifierCount int    `json:"identifier_count"`
	Status          string `json:"status"`
	OutputPath      string `json:"output_path,omitempty"`
	TotalCount      int    `json:"total_count"`
	SuccessCount    int    `json:"success_count"`
	ErrorCount      int    `json:"error_count"`
	ErrorMessage    string `json:"error_message,omitempty"`
	StartedAt       string `json:"started_at"`
	CompletedAt     string `json:"completed_at,omitempty"`
}

// RunListResponse is returned when listing runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// RunItemResponse is the recorded outcome for one ASIN.
type RunItemResponse struct {
	Position     int    `json:"position"`
	ASIN         string `json:"asin"`
	Status       string `json:"status"`
	OfferCount   int    `json:"offer_count"`
	HasWinner    bool   `json:"has_winner"`
	ErrorMessage string `json:"error_message,omitempty"`
	ProcessedAt  string `json:"processed_at"`
}

// RunItemListResponse lists the items of a run.
type RunItemListResponse struct {
	RunID string            `json:"run_id"`
	Items []RunItemResponse `json:"items"`
	Count int               `json:"count"`
}

// APICallResponse is one recorded upstream attempt.
type APICallResponse struct {
	ID         int64  `json:"id"`
	ASIN       string `json:"asin"`
	Operation  string `json:"operation"`
	Attempt    int    `json:"attempt"`
	StatusCode int    `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
	CalledAt   string `json:"called_at"`
}

// APICallListResponse lists the upstream calls of a run.
type APICallListResponse struct {
	RunID string            `json:"run_id"`
	Calls []APICallResponse `json:"calls"`
	Count int               `json:"count"`
}
