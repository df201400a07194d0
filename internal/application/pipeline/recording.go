package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/eshaffer321/buybox-analyzer/internal/adapters/offers"
	"github.com/eshaffer321/buybox-analyzer/internal/domain/buybox"
	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/storage"
)

// Recording and audit trail functions for the pipeline.
// Storage failures are logged and never fail the run.

// startRun records the start of the run
func (p *Pipeline) startRun(count int, start time.Time) {
	if p.repo == nil {
		return
	}

	run := &storage.Run{
		ID:              p.runID,
		Source:          p.source,
		IdentifierCount: count,
		StartedAt:       start,
	}
	if m, ok := p.fetcher.(marketplaceAware); ok {
		run.MarketplaceID = m.MarketplaceID()
	}

	if err := p.repo.StartRun(run); err != nil {
		p.logger.Warn("Failed to start run tracking", "error", err)
	}
}

// completeRun records the final outcome; summary may be nil for fatal errors
func (p *Pipeline) completeRun(status string, summary *Summary, cause error) {
	if p.repo == nil {
		return
	}

	outcome := storage.RunOutcome{Status: status}
	if summary != nil {
		outcome.OutputPath = summary.OutputPath
		outcome.TotalCount = summary.TotalCount
		outcome.SuccessCount = summary.SuccessCount
		outcome.ErrorCount = summary.ErrorCount
	}
	if cause != nil {
		outcome.ErrorMessage = cause.Error()
	}

	if err := p.repo.CompleteRun(p.runID, outcome); err != nil {
		p.logger.Error("Failed to complete run tracking", "error", err)
	}
}

// recordItem records the terminal state of one ASIN
func (p *Pipeline) recordItem(it *item, result buybox.Result) {
	if p.repo == nil {
		return
	}

	record := &storage.RunItem{
		RunID:        p.runID,
		Position:     it.position,
		ASIN:         it.asin,
		Status:       storage.ItemStatusAnalyzed,
		OfferCount:   result.TotalOffers,
		HasWinner:    result.Winner != nil,
		ErrorMessage: result.Error,
		ProcessedAt:  result.AnalyzedAt,
	}
	if it.state == StateFailed {
		record.Status = storage.ItemStatusFailed
	}

	if err := p.repo.SaveRunItem(record); err != nil {
		p.logger.Error("Failed to save run item", "asin", it.asin, "error", err)
	}
}

// callRecorder logs every upstream attempt to the repository
type callRecorder struct {
	repo   storage.Repository
	runID  string
	logger *slog.Logger
}

// RecordCall implements offers.CallRecorder
func (r *callRecorder) RecordCall(_ context.Context, call offers.CallRecord) {
	record := &storage.APICall{
		RunID:      r.runID,
		ASIN:       call.ASIN,
		Operation:  call.Operation,
		Attempt:    call.Attempt,
		StatusCode: call.StatusCode,
		DurationMs: call.Duration.Milliseconds(),
		CalledAt:   call.At,
	}
	if call.Err != nil {
		record.Error = call.Err.Error()
	}

	if err := r.repo.LogAPICall(record); err != nil {
		r.logger.Error("Failed to log API call", "operation", call.Operation, "asin", call.ASIN, "error", err)
	}
}
