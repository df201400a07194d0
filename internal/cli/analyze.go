package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/eshaffer321/buybox-analyzer/internal/adapters/export"
	"github.com/eshaffer321/buybox-analyzer/internal/adapters/spapi"
	"github.com/eshaffer321/buybox-analyzer/internal/application/pipeline"
	"github.com/eshaffer321/buybox-analyzer/internal/domain/buybox"
	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/config"
	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/storage"
)

// RunAnalyze runs one analysis against SP-API and writes the workbook.
// Cancelling ctx stops fetching; results gathered so far are still written.
func RunAnalyze(ctx context.Context, cfg *config.Config, flags *AnalyzeFlags, out io.Writer) error {
	logger := commandLogger(cfg, flags.Verbose, "analyze")

	client := NewOffersClient(cfg, logger)
	if !client.Configured() {
		return fmt.Errorf("%w: run 'buybox configure' or set %s, %s and %s",
			spapi.ErrCredentialsNotConfigured, config.EnvRefreshToken, config.EnvClientID, config.EnvClientSecret)
	}

	return Analyze(ctx, cfg, flags, client, out, logger)
}

// Analyze runs the pipeline with fetcher. The run is recorded in the
// configured database unless flags.NoDB is set.
func Analyze(ctx context.Context, cfg *config.Config, flags *AnalyzeFlags, fetcher pipeline.Fetcher, out io.Writer, logger *slog.Logger) error {
	raw, err := CollectIdentifiers(flags)
	if err != nil {
		return err
	}

	asins, invalid, err := buybox.ParseIdentifiers(raw)
	for _, entry := range invalid {
		fmt.Fprintf(out, "Skipping invalid ASIN: %q\n", entry)
	}
	if err != nil {
		return err
	}

	outputPath := flags.Output
	if outputPath == "" {
		outputPath = export.DefaultOutputPath(cfg.Output.Dir, time.Now())
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithSource("cli"),
	}
	if !flags.NoDB {
		store, err := storage.NewStorage(cfg.Storage.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = store.Close() }()
		opts = append(opts, pipeline.WithRepository(store))
	}

	p := pipeline.New(fetcher, export.NewExcelWriter(logger), opts...)

	PrintHeader(out, len(asins), outputPath)
	summary, runErr := p.Run(ctx, pipeline.RunOptions{
		Identifiers: asins,
		OutputPath:  outputPath,
		Progress:    progressPrinter(out),
	})
	if summary != nil {
		PrintSummary(out, summary)
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) && summary != nil {
			fmt.Fprintln(out, "\nAnalysis interrupted; partial results were saved.")
		}
		return runErr
	}
	return nil
}

func progressPrinter(out io.Writer) pipeline.ProgressFunc {
	return func(u pipeline.ProgressUpdate) {
		fmt.Fprintf(out, "[%d/%d] %s\n", u.Current, u.Total, u.Message)
	}
}
