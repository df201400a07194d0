// Package pipeline runs the extract, transform and load stages of a Buy Box
// analysis over a batch of ASINs.
//
// ASINs are processed one at a time in input order. A failure for one ASIN is
// captured in its result and never aborts the batch; only missing inputs,
// missing credentials or an empty extraction are fatal. A Pipeline owns its accumulated state and must
// not be used by concurrent callers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/buybox-analyzer/internal/adapters/offers"
	"github.com/eshaffer321/buybox-analyzer/internal/adapters/spapi"
	"github.com/eshaffer321/buybox-analyzer/internal/domain/buybox"
	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/logging"
	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/storage"
)

// runScoped is implemented by fetchers that can tag calls with a run ID
type runScoped interface {
	ForRun(runID string, recorder offers.CallRecorder) *offers.Client
}

// marketplaceAware is implemented by fetchers bound to one marketplace
type marketplaceAware interface {
	MarketplaceID() string
}

// Pipeline orchestrates a single analysis run
type Pipeline struct {
	fetcher  Fetcher
	sink     Sink
	analyzer *buybox.Analyzer
	repo     storage.Repository
	logger   *slog.Logger
	runID    string
	source   string
	now      func() time.Time

	items   []*item
	results []buybox.Result
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the base logger. The run ID is added to it.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithRepository records the run, its items and upstream calls in repo
func WithRepository(repo storage.Repository) Option {
	return func(p *Pipeline) { p.repo = repo }
}

// WithRunID overrides the generated run ID
func WithRunID(runID string) Option {
	return func(p *Pipeline) { p.runID = runID }
}

// WithSource labels where the run was started from ("cli", "api")
func WithSource(source string) Option {
	return func(p *Pipeline) { p.source = source }
}

// WithClock sets the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline reading from fetcher and writing to sink
func New(fetcher Fetcher, sink Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher: fetcher,
		sink:    sink,
		logger:  slog.Default(),
		runID:   uuid.NewString(),
		source:  "cli",
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.logger = logging.ForRun(p.logger, p.runID)
	p.analyzer = buybox.NewAnalyzerWithClock(p.now)

	if scoped, ok := fetcher.(runScoped); ok {
		var recorder offers.CallRecorder
		if p.repo != nil {
			recorder = &callRecorder{repo: p.repo, runID: p.runID, logger: p.logger}
		}
		p.fetcher = scoped.ForRun(p.runID, recorder)
	}

	return p
}

// RunID returns the identifier stamped on this run's logs and records
func (p *Pipeline) RunID() string {
	return p.runID
}

// Extract fetches title and offers for each ASIN in order. A fetch failure
// marks the ASIN failed with an "Unknown" title and no offers. Missing
// credentials are a configuration error: extraction stops and the error is
// returned.
//
// If ctx is cancelled, the in-flight ASIN and all remaining ones are marked
// failed and the context error is returned; the items gathered so far are
// kept for Transform.
func (p *Pipeline) Extract(ctx context.Context, asins []string, progress ProgressFunc) error {
	if len(asins) == 0 {
		return ErrNoIdentifiers
	}

	p.items = make([]*item, 0, len(asins))
	p.results = nil
	for i, asin := range asins {
		p.items = append(p.items, &item{position: i + 1, asin: asin, state: StatePending})
	}

	total := len(p.items)
	p.logger.Info("Starting extraction", "count", total)

	for i, it := range p.items {
		if err := ctx.Err(); err != nil {
			p.cancelRemaining(p.items[i:], err)
			return fmt.Errorf("extraction cancelled after %d of %d: %w", i, total, err)
		}

		if err := p.extractOne(ctx, it); err != nil {
			p.abortRemaining(p.items[i:], err)
			return fmt.Errorf("extraction aborted at %s: %w", it.asin, err)
		}
		progress.emit(ProgressUpdate{
			Current: i + 1,
			Total:   total,
			ASIN:    it.asin,
			Message: fmt.Sprintf("Fetching data for %s", it.asin),
		})

		if err := ctx.Err(); err != nil {
			if it.state == StateFailed {
				it.err = cancelledMessage(err)
			}
			p.cancelRemaining(p.items[i+1:], err)
			return fmt.Errorf("extraction cancelled after %d of %d: %w", i+1, total, err)
		}
	}

	p.logger.Info("Extraction complete", "count", total)
	return nil
}

// extractOne fetches one ASIN. Only configuration errors are returned; every
// other failure is recorded on the item.
func (p *Pipeline) extractOne(ctx context.Context, it *item) error {
	p.logger.Debug("Fetching data", "asin", it.asin, "position", it.position)

	title, err := p.fetcher.FetchTitle(ctx, it.asin)
	if err == nil {
		var fetched []buybox.Offer
		fetched, err = p.fetcher.FetchOffers(ctx, it.asin)
		if err == nil {
			it.title = title
			it.offers = fetched
			it.state = StateFetched
			p.logger.Debug("Fetched offers", "asin", it.asin, "offers", len(fetched))
			return nil
		}
	}

	it.title = offers.TitleUnknown
	it.offers = nil
	it.state = StateFailed
	it.err = err.Error()

	if errors.Is(err, spapi.ErrCredentialsNotConfigured) {
		return err
	}
	p.logger.Error("Failed to fetch data", "asin", it.asin, "error", err)
	return nil
}

// abortRemaining fails items after a configuration error
func (p *Pipeline) abortRemaining(items []*item, cause error) {
	for _, it := range items {
		it.title = offers.TitleUnknown
		it.offers = nil
		it.state = StateFailed
		it.err = cause.Error()
	}
	p.logger.Error("Extraction aborted", "remaining", len(items), "error", cause)
}

func (p *Pipeline) cancelRemaining(items []*item, cause error) {
	for _, it := range items {
		it.title = offers.TitleUnknown
		it.state = StateFailed
		it.err = cancelledMessage(cause)
	}
	if len(items) > 0 {
		p.logger.Warn("Run cancelled, skipping remaining identifiers", "skipped", len(items))
	}
}

func cancelledMessage(cause error) string {
	return fmt.Sprintf("cancelled: %v", cause)
}

// Transform analyzes every fetched ASIN and converts failed ones into
// error results. Results keep input order.
func (p *Pipeline) Transform() ([]buybox.Result, error) {
	if len(p.items) == 0 {
		return nil, ErrNothingToTransform
	}

	results := make([]buybox.Result, 0, len(p.items))
	for _, it := range p.items {
		var result buybox.Result
		switch it.state {
		case StateFetched:
			result = p.analyzer.Analyze(it.offers, it.asin, it.title)
			it.state = StateAnalyzed
		default:
			result = p.analyzer.Failed(it.asin, it.title, it.err)
			it.state = StateFailed
		}
		// offers are not needed past ranking
		it.offers = nil

		p.recordItem(it, result)
		results = append(results, result)
	}

	p.results = results
	p.logger.Info("Transform complete", "results", len(results))
	return results, nil
}

// Load hands the transformed results to the sink
func (p *Pipeline) Load(destination string) (string, error) {
	if destination == "" {
		return "", ErrNoDestination
	}
	if p.results == nil {
		return "", ErrNoResults
	}

	path, err := p.sink.Write(p.results, destination)
	if err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}

	p.logger.Info("Results written", "path", path, "count", len(p.results))
	return path, nil
}

// Run performs Extract, Transform and Load and summarizes the outcome.
// On cancellation the partial results are still loaded and the summary is
// returned together with the wrapped context error.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*Summary, error) {
	if len(opts.Identifiers) == 0 {
		return nil, ErrNoIdentifiers
	}
	if opts.OutputPath == "" {
		return nil, ErrNoDestination
	}

	start := p.now()
	p.startRun(len(opts.Identifiers), start)

	extractErr := p.Extract(ctx, opts.Identifiers, opts.Progress)
	if extractErr != nil && !isCancellation(extractErr) {
		p.completeRun(storage.RunStatusFailed, nil, extractErr)
		return nil, extractErr
	}

	results, err := p.Transform()
	if err != nil {
		p.completeRun(storage.RunStatusFailed, nil, err)
		return nil, err
	}

	path, err := p.Load(opts.OutputPath)
	if err != nil {
		p.completeRun(storage.RunStatusFailed, nil, err)
		return nil, err
	}

	summary := &Summary{
		RunID:      p.runID,
		Status:     StatusSuccess,
		OutputPath: path,
		TotalCount: len(results),
		Duration:   p.now().Sub(start),
		Results:    results,
	}
	for _, r := range results {
		if r.HasError() {
			summary.ErrorCount++
		} else {
			summary.SuccessCount++
		}
	}

	if extractErr != nil {
		summary.Status = StatusCancelled
		p.completeRun(storage.RunStatusCancelled, summary, extractErr)
		return summary, extractErr
	}

	p.completeRun(storage.RunStatusCompleted, summary, nil)
	p.logger.Info("Run complete",
		"total", summary.TotalCount,
		"success", summary.SuccessCount,
		"errors", summary.ErrorCount,
		"duration", summary.Duration.String(),
	)
	return summary, nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
