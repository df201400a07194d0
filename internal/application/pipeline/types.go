package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/eshaffer321/buybox-analyzer/internal/domain/buybox"
)

// Structural failures. These abort a run; per-ASIN failures never do.
var (
	ErrNoIdentifiers      = errors.New("no identifiers provided")
	ErrNoDestination      = errors.New("no output destination provided")
	ErrNothingToTransform = errors.New("no extracted data to transform")
	ErrNoResults          = errors.New("no results to load")
)

// Fetcher retrieves raw catalog and offer data for one ASIN
type Fetcher interface {
	FetchTitle(ctx context.Context, asin string) (string, error)
	FetchOffers(ctx context.Context, asin string) ([]buybox.Offer, error)
}

// Sink persists analysis results and returns the effective output location
type Sink interface {
	Write(results []buybox.Result, destination string) (string, error)
}

// ItemState tracks an ASIN through a run
type ItemState string

const (
	StatePending  ItemState = "pending"
	StateFetched  ItemState = "fetched"
	StateAnalyzed ItemState = "analyzed"
	StateFailed   ItemState = "failed"
)

// SummaryStatus values
const (
	StatusSuccess   = "success"
	StatusCancelled = "cancelled"
)

// RunOptions holds the inputs of a single run
type RunOptions struct {
	Identifiers []string
	OutputPath  string
	Progress    ProgressFunc
}

// Summary holds run results
type Summary struct {
	RunID        string        `json:"run_id"`
	Status       string        `json:"status"`
	OutputPath   string        `json:"output_path"`
	TotalCount   int           `json:"total_count"`
	SuccessCount int           `json:"success_count"`
	ErrorCount   int           `json:"error_count"`
	Duration     time.Duration `json:"duration_ns"`

	// Results are the per-ASIN outcomes, in input order
	Results []buybox.Result `json:"-"`
}

// item is the per-ASIN working state between Extract and Transform
type item struct {
	position int
	asin     string
	title    string
	offers   []buybox.Offer
	state    ItemState
	err      string
}
