package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	mu       sync.Mutex
	runs     map[string]*Run
	items    map[string][]RunItem // keyed by run id
	apiCalls []APICall
	nextCall int64

	// Hooks for test assertions
	StartRunCalled    bool
	CompleteRunCalled bool
	LogAPICallCalled  bool

	// Error injection for testing error paths
	StartRunErr    error
	CompleteRunErr error
	SaveRunItemErr error
	LogAPICallErr  error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		runs:     make(map[string]*Run),
		items:    make(map[string][]RunItem),
		apiCalls: make([]APICall, 0),
		nextCall: 1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// StartRun stores a running run
func (m *MockRepository) StartRun(run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StartRunCalled = true
	if m.StartRunErr != nil {
		return m.StartRunErr
	}
	if _, exists := m.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Status = RunStatusRunning
	stored := *run
	m.runs[run.ID] = &stored
	return nil
}

// CompleteRun records a run outcome
func (m *MockRepository) CompleteRun(runID string, outcome RunOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CompleteRunCalled = true
	if m.CompleteRunErr != nil {
		return m.CompleteRunErr
	}

	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}

	now := time.Now()
	run.CompletedAt = &now
	run.OutputPath = outcome.OutputPath
	run.TotalCount = outcome.TotalCount
	run.SuccessCount = outcome.SuccessCount
	run.ErrorCount = outcome.ErrorCount
	run.ErrorMessage = outcome.ErrorMessage
	run.Status = outcome.Status
	if outcome.Status == RunStatusCompleted && outcome.ErrorCount > 0 {
		run.Status = RunStatusCompletedWithErrors
	}
	return nil
}

// SaveRunItem stores an item, replacing an earlier entry for the same ASIN
func (m *MockRepository) SaveRunItem(item *RunItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveRunItemErr != nil {
		return m.SaveRunItemErr
	}

	items := m.items[item.RunID]
	for i := range items {
		if items[i].ASIN == item.ASIN {
			items[i] = *item
			return nil
		}
	}
	m.items[item.RunID] = append(items, *item)
	return nil
}

// ListRuns returns runs newest first
func (m *MockRepository) ListRuns(limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	runs := make([]Run, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetRun retrieves a run by ID
func (m *MockRepository) GetRun(runID string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *run
	return &out, nil
}

// ListRunItems returns items ordered by position
func (m *MockRepository) ListRunItems(runID string) ([]RunItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := append([]RunItem(nil), m.items[runID]...)
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items, nil
}

// LogAPICall logs an API call
func (m *MockRepository) LogAPICall(call *APICall) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LogAPICallCalled = true
	if m.LogAPICallErr != nil {
		return m.LogAPICallErr
	}
	call.ID = m.nextCall
	m.nextCall++
	m.apiCalls = append(m.apiCalls, *call)
	return nil
}

// GetAPICallsByRunID retrieves API calls for a run
func (m *MockRepository) GetAPICallsByRunID(runID string) ([]APICall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []APICall
	for _, call := range m.apiCalls {
		if call.RunID == runID {
			result = append(result, call)
		}
	}
	return result, nil
}

// GetAPICallsByASIN retrieves the most recent API calls for an ASIN
func (m *MockRepository) GetAPICallsByASIN(asin string, limit int) ([]APICall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []APICall
	for i := len(m.apiCalls) - 1; i >= 0; i-- {
		if m.apiCalls[i].ASIN == asin {
			result = append(result, m.apiCalls[i])
			if limit > 0 && len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

// AddRun seeds a run directly, for handler tests
func (m *MockRepository) AddRun(run Run) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = &run
}

// Reset clears all stored data and hooks
func (m *MockRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = make(map[string]*Run)
	m.items = make(map[string][]RunItem)
	m.apiCalls = make([]APICall, 0)
	m.nextCall = 1
	m.StartRunCalled = false
	m.CompleteRunCalled = false
	m.LogAPICallCalled = false
	m.StartRunErr = nil
	m.CompleteRunErr = nil
	m.SaveRunItemErr = nil
	m.LogAPICallErr = nil
}
