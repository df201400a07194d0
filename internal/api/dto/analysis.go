package dto

// StartAnalysisRequest is the request body for starting an analysis.
// ASINs may be given as a list, as free text, or both.
type StartAnalysisRequest struct {
	ASINs      []string `json:"asins"`
	ASINText   string   `json:"asin_text"`   // Comma, semicolon or whitespace separated
	OutputPath string   `json:"output_path"` // Optional; defaults under the output dir
	Verbose    bool     `json:"verbose"`
}

// StartAnalysisResponse is returned when an analysis is started.
type StartAnalysisResponse struct {
	JobID       string   `json:"job_id"`
	Status      string   `json:"status"`
	Identifiers []string `json:"identifiers"`
	Ignored     []string `json:"ignored,omitempty"`
	OutputPath  string   `json:"output_path"`
}

// AnalysisJobResponse represents an analysis job's status.
type AnalysisJobResponse struct {
	JobID       string                   `json:"job_id"`
	Status      string                   `json:"status"`
	Identifiers int                      `json:"identifiers"`
	OutputPath  string                   `json:"output_path"`
	StartedAt   string                   `json:"started_at"`
	CompletedAt *string                  `json:"completed_at,omitempty"`
	Progress    AnalysisProgressResponse `json:"progress"`
	Summary     *AnalysisSummaryResponse `json:"summary,omitempty"`
	Error       *string                  `json:"error,omitempty"`
}

// AnalysisProgressResponse represents real-time progress.
type AnalysisProgressResponse struct {
	CurrentPhase string `json:"current_phase"`
	Total        int    `json:"total"`
	Processed    int    `json:"processed"`
	CurrentASIN  string `json:"current_asin,omitempty"`
	Message      string `json:"message,omitempty"`
	LastUpdate   string `json:"last_update"`
}

// AnalysisSummaryResponse represents the final counts of a run.
type AnalysisSummaryResponse struct {
	Status       string `json:"status"`
	OutputPath   string `json:"output_path"`
	TotalCount   int    `json:"total_count"`
	SuccessCount int    `json:"success_count"`
	ErrorCount   int    `json:"error_count"`
	DurationMs   int64  `json:"duration_ms"`
}

// AnalysisJobListResponse lists analysis jobs.
type AnalysisJobListResponse struct {
	Jobs  []AnalysisJobResponse `json:"jobs"`
	Count int                   `json:"count"`
}
