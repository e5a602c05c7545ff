package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/grocerycompare/price-service/internal/exchangerate"
)

var rateRefresh bool

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Show the SEK to DKK exchange rate",
	Long: `Print the exchange rate the comparison uses. With --refresh the rate is
fetched from the remote API and cached even when the cached rate is fresh.`,
	Annotations: map[string]string{needsServices: ""},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var rec exchangerate.Record
		if rateRefresh {
			var err error
			if rec, err = svc.Rates.Refresh(ctx); err != nil {
				return fmt.Errorf("refresh exchange rate: %w", err)
			}
		} else {
			rec = svc.Rates.Quote(ctx)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "1 SEK = %.4f DKK\n", rec.SekToDkk)
		fmt.Fprintf(out, "Source: %s\n", rec.Source)
		if !rec.LastUpdated.IsZero() {
			fmt.Fprintf(out, "Updated: %s\n", rec.LastUpdated.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rateCmd)
	rateCmd.Flags().BoolVar(&rateRefresh, "refresh", false, "Fetch a fresh rate from the API")
}
