package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/config"
)

// connectionTestTimeout bounds a credential check, retries included
const connectionTestTimeout = 30 * time.Second

// connectionTester is satisfied by *offers.Client
type connectionTester interface {
	TestConnection(ctx context.Context) error
	MarketplaceID() string
}

// RunTestConnection checks the configured SP-API credentials
func RunTestConnection(ctx context.Context, cfg *config.Config, flags *TestConnectionFlags, out io.Writer) error {
	logger := commandLogger(cfg, flags.Verbose, "spapi")
	return TestConnection(ctx, NewOffersClient(cfg, logger), out)
}

// TestConnection runs one catalog lookup through tester and reports the outcome
func TestConnection(ctx context.Context, tester connectionTester, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, connectionTestTimeout)
	defer cancel()

	fmt.Fprintf(out, "Testing SP-API connection (marketplace %s)...\n", tester.MarketplaceID())
	if err := tester.TestConnection(ctx); err != nil {
		fmt.Fprintln(out, "Connection failed.")
		return err
	}
	fmt.Fprintln(out, "Connection OK.")
	return nil
}
