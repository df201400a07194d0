package cli

import (
	"log/slog"

	"github.com/eshaffer321/buybox-analyzer/internal/adapters/offers"
	"github.com/eshaffer321/buybox-analyzer/internal/adapters/spapi"
	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/config"
	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/logging"
)

// NewOffersClient builds the SP-API offers client from configuration.
// The client is returned even without credentials; check Configured.
func NewOffersClient(cfg *config.Config, logger *slog.Logger) *offers.Client {
	offersRetry := cfg.Retry.Offers.Policy()
	catalogRetry := cfg.Retry.Catalog.Policy()

	opts := offers.Options{
		API: spapi.Config{
			Credentials: cfg.SPAPI.Credentials(),
			Endpoint:    cfg.SPAPI.Endpoint,
			TokenURL:    cfg.SPAPI.TokenURL,
		},
		MarketplaceID:  cfg.SPAPI.MarketplaceID,
		OffersLimiter:  spapi.NewRateLimiter(cfg.RateLimits.Offers.RequestsPerSecond, cfg.RateLimits.Offers.Burst),
		CatalogLimiter: spapi.NewRateLimiter(cfg.RateLimits.Catalog.RequestsPerSecond, cfg.RateLimits.Catalog.Burst),
		OffersRetry:    &offersRetry,
		CatalogRetry:   &catalogRetry,
		Logger:         logger,
	}
	if cfg.CacheTitles {
		opts.TitleCache = offers.NewMemoryCache()
	}

	return offers.NewClient(opts)
}

// commandLogger builds the logger of one subcommand
func commandLogger(cfg *config.Config, verbose bool, system string) *slog.Logger {
	loggingCfg := cfg.Observability.Logging
	if verbose {
		loggingCfg.Level = "debug"
	}
	return logging.NewLoggerWithSystem(loggingCfg, system)
}
