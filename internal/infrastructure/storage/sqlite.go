package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for run bookkeeping.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	// Foreign keys are a per-connection setting in SQLite, so enable them in the DSN
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// StartRun records the start of an analysis run
func (s *Storage) StartRun(run *Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Status = RunStatusRunning

	query := `
		INSERT INTO analysis_runs (id, source, marketplace_id, identifier_count, status, output_path, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		run.ID,
		run.Source,
		run.MarketplaceID,
		run.IdentifierCount,
		run.Status,
		run.OutputPath,
		run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to start run %s: %w", run.ID, err)
	}
	return nil
}

// CompleteRun records the outcome of a run
func (s *Storage) CompleteRun(runID string, outcome RunOutcome) error {
	query := `
		UPDATE analysis_runs
		SET completed_at = ?,
		    output_path = ?,
		    total_count = ?,
		    success_count = ?,
		    error_count = ?,
		    error_message = ?,
		    status = CASE WHEN ? = 'completed' AND ? > 0 THEN 'completed_with_errors' ELSE ? END
		WHERE id = ?
	`
	result, err := s.db.Exec(query,
		time.Now(),
		outcome.OutputPath,
		outcome.TotalCount,
		outcome.SuccessCount,
		outcome.ErrorCount,
		outcome.ErrorMessage,
		outcome.Status, outcome.ErrorCount, outcome.Status,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run %s: %w", runID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// SaveRunItem records the final state of one ASIN within a run
func (s *Storage) SaveRunItem(item *RunItem) error {
	if item.ProcessedAt.IsZero() {
		item.ProcessedAt = time.Now()
	}

	query := `
		INSERT OR REPLACE INTO run_items
		(run_id, position, asin, status, offer_count, has_winner, error_message, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		item.RunID,
		item.Position,
		item.ASIN,
		item.Status,
		item.OfferCount,
		item.HasWinner,
		item.ErrorMessage,
		item.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save item %s for run %s: %w", item.ASIN, item.RunID, err)
	}
	return nil
}

const runColumns = `id, source, marketplace_id, identifier_count, status, output_path,
	total_count, success_count, error_count, error_message, started_at, completed_at`

// ListRuns returns recent runs, newest first
func (s *Storage) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`SELECT `+runColumns+` FROM analysis_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun retrieves a run by ID
func (s *Storage) GetRun(runID string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM analysis_runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// ListRunItems returns the items of a run in input order
func (s *Storage) ListRunItems(runID string) ([]RunItem, error) {
	rows, err := s.db.Query(`
		SELECT run_id, position, asin, status, offer_count, has_winner, error_message, processed_at
		FROM run_items WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items for run %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var items []RunItem
	for rows.Next() {
		var item RunItem
		if err := rows.Scan(
			&item.RunID,
			&item.Position,
			&item.ASIN,
			&item.Status,
			&item.OfferCount,
			&item.HasWinner,
			&item.ErrorMessage,
			&item.ProcessedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// LogAPICall logs an upstream attempt to the database
func (s *Storage) LogAPICall(call *APICall) error {
	if call.CalledAt.IsZero() {
		call.CalledAt = time.Now()
	}

	query := `
		INSERT INTO api_calls (run_id, asin, operation, attempt, status_code, duration_ms, error, called_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.Exec(query,
		call.RunID,
		call.ASIN,
		call.Operation,
		call.Attempt,
		call.StatusCode,
		call.DurationMs,
		call.Error,
		call.CalledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log API call: %w", err)
	}

	call.ID, _ = result.LastInsertId()
	return nil
}

// GetAPICallsByRunID retrieves all calls made during a run
func (s *Storage) GetAPICallsByRunID(runID string) ([]APICall, error) {
	return s.queryAPICalls(`WHERE run_id = ? ORDER BY id`, runID)
}

// GetAPICallsByASIN retrieves the most recent calls for an ASIN
func (s *Storage) GetAPICallsByASIN(asin string, limit int) ([]APICall, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.queryAPICalls(`WHERE asin = ? ORDER BY id DESC LIMIT ?`, asin, limit)
}

func (s *Storage) queryAPICalls(where string, args ...interface{}) ([]APICall, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, asin, operation, attempt, status_code, duration_ms, error, called_at
		FROM api_calls `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query API calls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var calls []APICall
	for rows.Next() {
		var call APICall
		if err := rows.Scan(
			&call.ID,
			&call.RunID,
			&call.ASIN,
			&call.Operation,
			&call.Attempt,
			&call.StatusCode,
			&call.DurationMs,
			&call.Error,
			&call.CalledAt,
		); err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var completedAt sql.NullTime
	err := row.Scan(
		&run.ID,
		&run.Source,
		&run.MarketplaceID,
		&run.IdentifierCount,
		&run.Status,
		&run.OutputPath,
		&run.TotalCount,
		&run.SuccessCount,
		&run.ErrorCount,
		&run.ErrorMessage,
		&run.StartedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return &run, nil
}
