package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/grocerycompare/price-service/internal/entries"
	"github.com/grocerycompare/price-service/internal/report"
)

var (
	compareFilter entries.Filter
	compareSearch string
	exportOut     string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Print per-item SEK comparisons between Sweden and Denmark",
	Long: `Aggregate the stored price entries per item and basis, convert Danish
prices to SEK with the current exchange rate and print the averages and
differences as a table.`,
	Example: `  grocery compare
  grocery compare --item milk --from 2024-01-01
  grocery compare --search coffee`,
	Annotations: map[string]string{needsServices: ""},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		comparisons, err := svc.Entries.Compare(ctx, compareFilter, compareSearch, svc.Rates.Rate(ctx))
		if err != nil {
			return err
		}
		return report.WriteTable(cmd.OutOrStdout(), comparisons)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the comparison as an Excel workbook",
	Example: `  grocery export --out comparison.xlsx
  grocery export --country SE --out se.xlsx`,
	Annotations: map[string]string{needsServices: ""},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		quote := svc.Rates.Quote(ctx)
		comparisons, err := svc.Entries.Compare(ctx, compareFilter, compareSearch, quote.SekToDkk)
		if err != nil {
			return err
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOut, err)
		}
		if err := report.WriteXLSX(f, comparisons, report.Meta{
			Rate:        quote.SekToDkk,
			RateSource:  quote.Source,
			GeneratedAt: time.Now().UTC(),
		}); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		logger.Info().Str("file", exportOut).Int("items", len(comparisons)).Msg("Comparison exported")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compareCmd, exportCmd)

	for _, c := range []*cobra.Command{compareCmd, exportCmd} {
		c.Flags().StringVar(&compareFilter.Item, "item", "", "Only this grocery item (case-insensitive)")
		c.Flags().StringVar(&compareFilter.Country, "country", "", "Only entries from SE or DK")
		c.Flags().StringVar(&compareFilter.Store, "store", "", "Only entries from this store")
		c.Flags().StringVar(&compareFilter.From, "from", "", "Earliest entry date (YYYY-MM-DD)")
		c.Flags().StringVar(&compareFilter.To, "to", "", "Latest entry date (YYYY-MM-DD)")
		c.Flags().StringVar(&compareSearch, "search", "", "Only items containing this text")
	}
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "price-comparison.xlsx", "Output file")
}
