package storage

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory)
// and makes testing with mocks straightforward.
//
// Only run bookkeeping is stored: run summaries, per-ASIN outcomes and
// upstream call attempts. Offer data is never persisted.
type Repository interface {
	RunRepository
	APICallRepository
	Close() error
}

// RunRepository handles analysis run tracking
type RunRepository interface {
	// StartRun records the start of an analysis run
	StartRun(run *Run) error

	// CompleteRun records the outcome of a run
	CompleteRun(runID string, outcome RunOutcome) error

	// SaveRunItem records the final state of one ASIN within a run
	SaveRunItem(item *RunItem) error

	// ListRuns returns recent runs, newest first
	ListRuns(limit int) ([]Run, error)

	// GetRun retrieves a run by ID
	GetRun(runID string) (*Run, error)

	// ListRunItems returns the items of a run in input order
	ListRunItems(runID string) ([]RunItem, error)
}

// APICallRepository handles upstream call logging
type APICallRepository interface {
	// LogAPICall records one upstream attempt
	LogAPICall(call *APICall) error

	// GetAPICallsByRunID retrieves all calls made during a run
	GetAPICallsByRunID(runID string) ([]APICall, error)

	// GetAPICallsByASIN retrieves the most recent calls for an ASIN
	GetAPICallsByASIN(asin string, limit int) ([]APICall, error)
}
