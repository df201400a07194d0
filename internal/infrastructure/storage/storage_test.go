package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "buybox_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// runRepositoryContract exercises behaviour both implementations must share
func runRepositoryContract(t *testing.T, repo Repository) {
	base := time.Date(2025, 10, 10, 9, 0, 0, 0, time.UTC)

	first := &Run{ID: "run-1", Source: "cli", MarketplaceID: "ATVPDKIKX0DER", IdentifierCount: 3, StartedAt: base}
	second := &Run{ID: "run-2", Source: "api", MarketplaceID: "ATVPDKIKX0DER", IdentifierCount: 1, StartedAt: base.Add(time.Hour)}
	require.NoError(t, repo.StartRun(first))
	require.NoError(t, repo.StartRun(second))
	assert.Equal(t, RunStatusRunning, first.Status)

	require.NoError(t, repo.SaveRunItem(&RunItem{RunID: "run-1", Position: 2, ASIN: "B000000002", Status: ItemStatusFailed, ErrorMessage: "boom"}))
	require.NoError(t, repo.SaveRunItem(&RunItem{RunID: "run-1", Position: 1, ASIN: "B000000001", Status: ItemStatusAnalyzed, OfferCount: 4, HasWinner: true}))

	require.NoError(t, repo.CompleteRun("run-1", RunOutcome{
		Status:       RunStatusCompleted,
		OutputPath:   "/tmp/out.xlsx",
		TotalCount:   2,
		SuccessCount: 1,
		ErrorCount:   1,
	}))

	got, err := repo.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompletedWithErrors, got.Status)
	assert.Equal(t, "/tmp/out.xlsx", got.OutputPath)
	assert.Equal(t, 1, got.ErrorCount)
	assert.NotNil(t, got.CompletedAt)

	items, err := repo.ListRunItems("run-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "B000000001", items[0].ASIN)
	assert.True(t, items[0].HasWinner)
	assert.Equal(t, "boom", items[1].ErrorMessage)

	runs, err := repo.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID, "newest first")

	_, err = repo.GetRun("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.CompleteRun("missing", RunOutcome{Status: RunStatusFailed}), ErrNotFound)

	for attempt := 1; attempt <= 2; attempt++ {
		require.NoError(t, repo.LogAPICall(&APICall{
			RunID:      "run-1",
			ASIN:       "B000000001",
			Operation:  "GetItemOffers",
			Attempt:    attempt,
			StatusCode: 429,
			DurationMs: 120,
			CalledAt:   base.Add(time.Duration(attempt) * time.Second),
		}))
	}
	require.NoError(t, repo.LogAPICall(&APICall{RunID: "run-2", ASIN: "B000000009", Operation: "GetCatalogItem", Attempt: 1, StatusCode: 200}))

	calls, err := repo.GetAPICallsByRunID("run-1")
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, 1, calls[0].Attempt)
	assert.Equal(t, 429, calls[1].StatusCode)

	recent, err := repo.GetAPICallsByASIN("B000000001", 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 2, recent[0].Attempt)
}

func TestStorage_RepositoryContract(t *testing.T) {
	runRepositoryContract(t, newTestStorage(t))
}

func TestMockRepository_RepositoryContract(t *testing.T) {
	runRepositoryContract(t, NewMockRepository())
}

func TestStorage_CancelledStatusKept(t *testing.T) {
	store := newTestStorage(t)
	require.NoError(t, store.StartRun(&Run{ID: "run-c"}))

	require.NoError(t, store.CompleteRun("run-c", RunOutcome{Status: RunStatusCancelled, ErrorCount: 2, ErrorMessage: "context canceled"}))

	run, err := store.GetRun("run-c")
	require.NoError(t, err)
	assert.Equal(t, RunStatusCancelled, run.Status)
	assert.Equal(t, "context canceled", run.ErrorMessage)
}

func TestStorage_SaveRunItemReplaces(t *testing.T) {
	store := newTestStorage(t)
	require.NoError(t, store.StartRun(&Run{ID: "run-r"}))

	require.NoError(t, store.SaveRunItem(&RunItem{RunID: "run-r", Position: 1, ASIN: "B000000001", Status: ItemStatusFailed}))
	require.NoError(t, store.SaveRunItem(&RunItem{RunID: "run-r", Position: 1, ASIN: "B000000001", Status: ItemStatusAnalyzed}))

	items, err := store.ListRunItems("run-r")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, ItemStatusAnalyzed, items[0].Status)
}

func TestMockRepository_ErrorInjection(t *testing.T) {
	repo := NewMockRepository()
	repo.StartRunErr = assert.AnError

	assert.ErrorIs(t, repo.StartRun(&Run{ID: "x"}), assert.AnError)
	assert.True(t, repo.StartRunCalled)

	repo.Reset()
	assert.NoError(t, repo.StartRun(&Run{ID: "x"}))
}
