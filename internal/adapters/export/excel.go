// Package export writes analysis results to spreadsheet files.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/eshaffer321/buybox-analyzer/internal/domain/buybox"
)

const (
	// SheetName is the worksheet holding the results
	SheetName = "Buy Box Analysis"
	// NoWinnerLabel fills the winner column when no offer holds the Buy Box
	NoWinnerLabel = "No Winner"

	timestampLayout = "2006-01-02 15:04:05"
	currencyFormat  = "$#,##0.00"
	headerColor     = "FF9900"
)

type column struct {
	title string
	width float64
}

var columns = []column{
	{"ASIN", 15},
	{"Product Name", 50},
	{"Buy Box Winner", 18},
	{"Price", 12},
	{"Shipping", 12},
	{"Total Price", 12},
	{"Is FBA", 10},
	{"Is Prime", 10},
	{"Seller Rating", 14},
	{"Reasons", 60},
	{"Total Offers", 12},
	{"Analyzed At", 20},
	{"Error", 30},
}

// Column indexes (1-based) that get special styling
const (
	colPrice   = 4
	colTotal   = 6
	colReasons = 10
	colError   = 13
)

// ExcelWriter writes results to an .xlsx workbook
type ExcelWriter struct {
	logger *slog.Logger
}

// NewExcelWriter creates a writer
func NewExcelWriter(logger *slog.Logger) *ExcelWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelWriter{logger: logger.With(slog.String("system", "export"))}
}

// DefaultOutputPath returns a timestamped workbook path inside dir
func DefaultOutputPath(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("buybox_analysis_%s.xlsx", now.Format("20060102_150405")))
}

// Write saves results to destination and returns the path written.
// A destination that is an existing directory gets a timestamped file name.
// Missing parent directories are created. An empty result list produces a
// workbook with only the header row.
func (w *ExcelWriter) Write(results []buybox.Result, destination string) (string, error) {
	if destination == "" {
		return "", fmt.Errorf("no destination given")
	}
	if info, err := os.Stat(destination); err == nil && info.IsDir() {
		destination = DefaultOutputPath(destination, time.Now())
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return "", fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := w.writeHeader(f); err != nil {
		return "", err
	}

	for i, r := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		row := resultRow(r)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return "", fmt.Errorf("failed to write row for %s: %w", r.ASIN, err)
		}
	}

	if err := w.styleBody(f, results); err != nil {
		return "", err
	}

	if err := f.SaveAs(destination); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	w.logger.Info("results exported",
		slog.String("path", destination),
		slog.Int("rows", len(results)))
	return destination, nil
}

func (w *ExcelWriter) writeHeader(f *excelize.File) error {
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c.title
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, name, name, c.width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
			WrapText:   true,
		},
		Border: thinBorder(),
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	last, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}
	return nil
}

func (w *ExcelWriter) styleBody(f *excelize.File, results []buybox.Result) error {
	lastRow := len(results) + 1
	lastCell, _ := excelize.CoordinatesToCellName(len(columns), lastRow)
	if err := f.AutoFilter(SheetName, "A1:"+lastCell, nil); err != nil {
		return fmt.Errorf("failed to add autofilter: %w", err)
	}
	if len(results) == 0 {
		return nil
	}

	numFmt := currencyFormat
	currency, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("failed to create currency style: %w", err)
	}
	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("failed to create wrap style: %w", err)
	}
	errorText, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "FF0000"}})
	if err != nil {
		return fmt.Errorf("failed to create error style: %w", err)
	}

	from, _ := excelize.CoordinatesToCellName(colPrice, 2)
	to, _ := excelize.CoordinatesToCellName(colTotal, lastRow)
	if err := f.SetCellStyle(SheetName, from, to, currency); err != nil {
		return err
	}

	from, _ = excelize.CoordinatesToCellName(colReasons, 2)
	to, _ = excelize.CoordinatesToCellName(colReasons, lastRow)
	if err := f.SetCellStyle(SheetName, from, to, wrap); err != nil {
		return err
	}

	for i, r := range results {
		if !r.HasError() {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(colError, i+2)
		if err := f.SetCellStyle(SheetName, cell, cell, errorText); err != nil {
			return err
		}
	}
	return nil
}

// resultRow maps a result onto the column layout
func resultRow(r buybox.Result) []interface{} {
	row := []interface{}{
		r.ASIN,
		r.ProductName,
		NoWinnerLabel,
		"", "", "",
		"", "",
		"",
		strings.Join(r.Reasons, "; "),
		r.TotalOffers,
		r.AnalyzedAt.Format(timestampLayout),
		r.Error,
	}

	if w := r.Winner; w != nil {
		row[2] = w.SellerID
		row[3] = w.Price.InexactFloat64()
		row[4] = w.Shipping.InexactFloat64()
		row[5] = w.TotalPrice.InexactFloat64()
		row[6] = yesNo(w.IsFBA)
		row[7] = yesNo(w.IsPrime)
		if w.SellerRating != nil {
			row[8] = fmt.Sprintf("%.0f%%", *w.SellerRating)
		}
	}
	return row
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func thinBorder() []excelize.Border {
	sides := []string{"left", "top", "right", "bottom"}
	borders := make([]excelize.Border, 0, len(sides))
	for _, side := range sides {
		borders = append(borders, excelize.Border{Type: side, Color: "000000", Style: 1})
	}
	return borders
}
