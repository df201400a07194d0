package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/eshaffer321/buybox-analyzer/internal/application/pipeline"
)

// PrintHeader prints the application header
func PrintHeader(out io.Writer, count int, outputPath string) {
	fmt.Fprintf(out, "buybox: analyzing %s %s\n", humanize.Comma(int64(count)), plural(count, "ASIN", "ASINs"))
	fmt.Fprintf(out, "Output: %s\n\n", outputPath)
}

// PrintSummary prints the run result summary
func PrintSummary(out io.Writer, summary *pipeline.Summary) {
	fmt.Fprintln(out, strings.Repeat("-", 60))
	fmt.Fprintf(out, "Summary: Total=%d Success=%d Errors=%d Duration=%s\n",
		summary.TotalCount,
		summary.SuccessCount,
		summary.ErrorCount,
		summary.Duration.Round(time.Millisecond))

	var failed []string
	for _, r := range summary.Results {
		if r.HasError() {
			failed = append(failed, fmt.Sprintf("  - %s: %s", r.ASIN, r.Error))
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(out, "\nErrors:")
		for _, line := range failed {
			fmt.Fprintln(out, line)
		}
	}

	if summary.OutputPath != "" {
		fmt.Fprintf(out, "\nResults saved to %s\n", summary.OutputPath)
	}
	if summary.RunID != "" {
		fmt.Fprintf(out, "Run ID: %s\n", summary.RunID)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
