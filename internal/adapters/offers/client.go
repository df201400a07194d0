// Package offers fetches Buy Box offer listings and product titles from the
// Selling Partner API and normalizes them into buybox.Offer values.
//
// Every upstream attempt takes one token from the endpoint's rate limiter
// and runs under the endpoint's retry policy:
//
//	client := offers.NewClient(offers.Options{API: apiCfg, Logger: logger})
//	list, err := client.FetchOffers(ctx, "B08N5WRWNW")
package offers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eshaffer321/buybox-analyzer/internal/adapters/spapi"
	"github.com/eshaffer321/buybox-analyzer/internal/domain/buybox"
)

const (
	// TitleNotFound is returned by FetchTitle when the catalog has no such ASIN
	TitleNotFound = "Product not found"
	// TitleUnknown is used when the catalog item carries no usable summary
	TitleUnknown = "Unknown"
	// HealthCheckASIN is a long-lived catalog item used to verify credentials
	HealthCheckASIN = "B08N5WRWNW"

	itemConditionNew = "New"
)

// Upstream is the subset of the Selling Partner API used by Client
type Upstream interface {
	GetItemOffers(ctx context.Context, marketplaceID, asin, itemCondition string) (*spapi.ItemOffersPayload, error)
	GetCatalogItem(ctx context.Context, marketplaceID, asin string) (*spapi.CatalogItem, error)
}

// Limiter admits one upstream call per Acquire. *spapi.RateLimiter is the
// production implementation.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// CallRecord describes one upstream attempt
type CallRecord struct {
	Operation  string
	ASIN       string
	Attempt    int
	StatusCode int
	Duration   time.Duration
	Err        error
	At         time.Time
}

// CallRecorder receives every upstream attempt made by a run-scoped Client
type CallRecorder interface {
	RecordCall(ctx context.Context, call CallRecord)
}

// Options configures a Client
type Options struct {
	// API is the template used by Configure. Its Credentials are applied
	// at construction when complete.
	API           spapi.Config
	MarketplaceID string

	OffersLimiter  Limiter
	CatalogLimiter Limiter
	OffersRetry    *spapi.RetryPolicy
	CatalogRetry   *spapi.RetryPolicy

	// TitleCache is optional; nil disables title caching
	TitleCache TitleCache
	Logger     *slog.Logger

	// Upstream overrides the SP-API client, mainly for tests
	Upstream Upstream
}

// connection holds the configured upstream, shared by every view of a Client
type connection struct {
	mu       sync.RWMutex
	upstream Upstream
	template spapi.Config
}

// Client fetches offers and titles. Limiters and the upstream connection are
// shared between a Client and the run-scoped views returned by ForRun.
type Client struct {
	conn           *connection
	marketplaceID  string
	offersLimiter  Limiter
	catalogLimiter Limiter
	offersRetry    spapi.RetryPolicy
	catalogRetry   spapi.RetryPolicy
	cache          TitleCache
	logger         *slog.Logger
	recorder       CallRecorder
}

// NewClient creates a client. Without complete credentials or an explicit
// Upstream the client is left unconfigured and every fetch fails with
// spapi.ErrCredentialsNotConfigured.
func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		conn:           &connection{template: opts.API},
		marketplaceID:  opts.MarketplaceID,
		offersLimiter:  opts.OffersLimiter,
		catalogLimiter: opts.CatalogLimiter,
		cache:          opts.TitleCache,
		logger:         logger.With(slog.String("system", "spapi")),
	}

	if c.marketplaceID == "" {
		c.marketplaceID = spapi.DefaultMarketplaceID
	}
	if c.offersLimiter == nil {
		c.offersLimiter = spapi.NewRateLimiter(0.5, 1)
	}
	if c.catalogLimiter == nil {
		c.catalogLimiter = spapi.NewRateLimiter(2, 2)
	}
	if opts.OffersRetry != nil {
		c.offersRetry = *opts.OffersRetry
	} else {
		c.offersRetry = spapi.OffersRetryPolicy()
	}
	if opts.CatalogRetry != nil {
		c.catalogRetry = *opts.CatalogRetry
	} else {
		c.catalogRetry = spapi.CatalogRetryPolicy()
	}

	if opts.Upstream != nil {
		c.conn.upstream = opts.Upstream
		return c
	}

	if err := c.Configure(opts.API.Credentials); err != nil {
		c.logger.Warn("SP-API client not configured", slog.String("error", err.Error()))
	}
	return c
}

// Configure replaces the credentials used for upstream calls.
// Incomplete credentials leave the client unconfigured.
func (c *Client) Configure(creds spapi.Credentials) error {
	c.conn.mu.Lock()
	defer c.conn.mu.Unlock()

	cfg := c.conn.template
	cfg.Credentials = creds

	upstream, err := spapi.NewClient(cfg)
	if err != nil {
		c.conn.upstream = nil
		return err
	}

	c.conn.template = cfg
	c.conn.upstream = upstream
	c.logger.Info("SP-API client configured", slog.String("marketplace_id", c.marketplaceID))
	return nil
}

// Configured reports whether fetches can reach the API
func (c *Client) Configured() bool {
	c.conn.mu.RLock()
	defer c.conn.mu.RUnlock()
	return c.conn.upstream != nil
}

// MarketplaceID returns the marketplace queried by this client
func (c *Client) MarketplaceID() string {
	return c.marketplaceID
}

// ForRun returns a view of the client bound to one analysis run. The view
// shares limiters, cache and connection with c; its logs carry run_id and
// every attempt is reported to recorder (which may be nil).
func (c *Client) ForRun(runID string, recorder CallRecorder) *Client {
	view := *c
	view.logger = c.logger.With(slog.String("run_id", runID))
	view.recorder = recorder
	return &view
}

// FetchOffers returns the new-condition offers for asin.
// An ASIN unknown to the pricing API yields an empty list.
func (c *Client) FetchOffers(ctx context.Context, asin string) ([]buybox.Offer, error) {
	upstream, err := c.upstream()
	if err != nil {
		return nil, err
	}

	var payload *spapi.ItemOffersPayload
	err = c.offersRetry.Do(ctx, func(ctx context.Context, attempt int) error {
		if err := c.offersLimiter.Acquire(ctx); err != nil {
			return err
		}

		start := time.Now()
		p, err := upstream.GetItemOffers(ctx, c.marketplaceID, asin, itemConditionNew)
		c.recordCall(ctx, "GetItemOffers", asin, attempt, start, err)
		if err != nil {
			if spapi.IsNotFound(err) {
				return nil
			}
			c.logger.Debug("offers request failed",
				slog.String("asin", asin),
				slog.Int("attempt", attempt),
				slog.Bool("transient", spapi.IsTransient(err)),
				slog.String("error", err.Error()))
			return err
		}
		payload = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch offers for %s: %w", asin, err)
	}

	if payload == nil {
		c.logger.Info("no offers found", slog.String("asin", asin))
		return []buybox.Offer{}, nil
	}

	return NormalizeOffers(payload.Offers, c.logger.With(slog.String("asin", asin))), nil
}

// FetchTitle returns the catalog item name for asin, TitleNotFound if the
// catalog has no such item.
func (c *Client) FetchTitle(ctx context.Context, asin string) (string, error) {
	upstream, err := c.upstream()
	if err != nil {
		return "", err
	}

	key := c.marketplaceID + ":" + asin
	if c.cache != nil {
		if title, ok := c.cache.Get(key); ok {
			return title, nil
		}
	}

	var title string
	err = c.catalogRetry.Do(ctx, func(ctx context.Context, attempt int) error {
		if err := c.catalogLimiter.Acquire(ctx); err != nil {
			return err
		}

		start := time.Now()
		item, err := upstream.GetCatalogItem(ctx, c.marketplaceID, asin)
		c.recordCall(ctx, "GetCatalogItem", asin, attempt, start, err)
		if err != nil {
			if spapi.IsNotFound(err) {
				title = TitleNotFound
				return nil
			}
			c.logger.Debug("catalog request failed",
				slog.String("asin", asin),
				slog.Int("attempt", attempt),
				slog.Bool("transient", spapi.IsTransient(err)),
				slog.String("error", err.Error()))
			return err
		}
		title = SelectTitle(item, c.marketplaceID)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch title for %s: %w", asin, err)
	}

	if c.cache != nil && title != TitleNotFound {
		c.cache.Set(key, title)
	}
	return title, nil
}

// TestConnection verifies the credentials with a catalog lookup
func (c *Client) TestConnection(ctx context.Context) error {
	title, err := c.FetchTitle(ctx, HealthCheckASIN)
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	c.logger.Info("SP-API connection OK", slog.String("asin", HealthCheckASIN), slog.String("title", title))
	return nil
}

// SelectTitle picks the item name for marketplaceID, falling back to the
// first summary
func SelectTitle(item *spapi.CatalogItem, marketplaceID string) string {
	if item == nil || len(item.Summaries) == 0 {
		return TitleUnknown
	}
	for _, s := range item.Summaries {
		if s.MarketplaceID == marketplaceID && s.ItemName != "" {
			return s.ItemName
		}
	}
	if name := item.Summaries[0].ItemName; name != "" {
		return name
	}
	return TitleUnknown
}

func (c *Client) upstream() (Upstream, error) {
	c.conn.mu.RLock()
	defer c.conn.mu.RUnlock()

	if c.conn.upstream == nil {
		return nil, spapi.ErrCredentialsNotConfigured
	}
	return c.conn.upstream, nil
}

func (c *Client) recordCall(ctx context.Context, operation, asin string, attempt int, start time.Time, err error) {
	if c.recorder == nil {
		return
	}

	status := 200
	if err != nil {
		status = spapi.StatusCode(err)
	}

	c.recorder.RecordCall(ctx, CallRecord{
		Operation:  operation,
		ASIN:       asin,
		Attempt:    attempt,
		StatusCode: status,
		Duration:   time.Since(start),
		Err:        err,
		At:         start,
	})
}
