// Package report renders price comparisons for download and terminals.
package report

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/grocerycompare/price-service/internal/pricing"
)

const (
	comparisonSheet = "Comparison"
	infoSheet       = "Info"
)

var headers = []string{
	"Item", "Basis", "Avg SE (SEK)", "Count SE", "Avg DK (SEK)", "Count DK",
	"Difference (SEK)", "Difference (%)", "Cheaper",
}

// Meta describes how a comparison was produced.
type Meta struct {
	Rate        float64
	RateSource  string
	GeneratedAt time.Time
}

func cellValue(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func row(c pricing.Comparison) []any {
	return []any{
		c.Item,
		string(c.Basis),
		cellValue(c.AvgPriceSE),
		c.CountSE,
		cellValue(c.AvgPriceDK),
		c.CountDK,
		cellValue(c.Difference),
		cellValue(c.PercentDifference),
		string(pricing.Cheaper(c)),
	}
}

// WriteXLSX writes comparisons as an Excel workbook with a comparison
// sheet and an info sheet holding the exchange rate used.
func WriteXLSX(w io.Writer, comparisons []pricing.Comparison, meta Meta) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), comparisonSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(comparisonSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(comparisonSheet, "A1", lastHeader, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, c := range comparisons {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row(c)
		if err := f.SetSheetRow(comparisonSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if len(comparisons) > 0 {
		decimals, err := f.NewStyle(&excelize.Style{NumFmt: 2})
		if err != nil {
			return fmt.Errorf("create number style: %w", err)
		}
		last := strconv.Itoa(len(comparisons) + 1)
		for _, col := range []string{"C", "E", "G", "H"} {
			if err := f.SetCellStyle(comparisonSheet, col+"2", col+last, decimals); err != nil {
				return fmt.Errorf("style column %s: %w", col, err)
			}
		}
	}
	if err := f.SetColWidth(comparisonSheet, "A", "A", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(comparisonSheet, "B", "I", 16); err != nil {
		return err
	}

	if _, err := f.NewSheet(infoSheet); err != nil {
		return fmt.Errorf("create info sheet: %w", err)
	}
	info := [][]any{
		{"SEK to DKK", meta.Rate},
		{"Rate source", meta.RateSource},
		{"Generated at", meta.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Items", len(comparisons)},
	}
	for i, r := range info {
		if err := f.SetSheetRow(infoSheet, "A"+strconv.Itoa(i+1), &r); err != nil {
			return fmt.Errorf("write info: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func formatPrice(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

// WriteTable writes comparisons as an aligned plain-text table.
func WriteTable(w io.Writer, comparisons []pricing.Comparison) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tBASIS\tAVG SE\tN SE\tAVG DK\tN DK\tDIFF\tDIFF %\tCHEAPER")
	for _, c := range comparisons {
		cheaper := string(pricing.Cheaper(c))
		if cheaper == "" {
			cheaper = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d\t%s\t%s\t%s\n",
			c.Item, c.Basis,
			formatPrice(c.AvgPriceSE), c.CountSE,
			formatPrice(c.AvgPriceDK), c.CountDK,
			formatPrice(c.Difference), formatPrice(c.PercentDifference),
			cheaper)
	}
	return tw.Flush()
}
