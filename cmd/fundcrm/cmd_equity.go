package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/fundcrm/internal/equity"
	"github.com/ajitpratap0/fundcrm/internal/format"
	"github.com/ajitpratap0/fundcrm/internal/models"
)

func equityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "equity",
		Short: "Show actual and target equity dilution by round",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				series := equity.Compute(s.d.State(), equityOptions())
				if len(series.Target) == 0 {
					fmt.Println("No rounds yet.")
					return nil
				}

				fmt.Println("Target:")
				printSeries(series.Target)
				fmt.Println("\nActual:")
				if len(series.Actual) == 0 {
					fmt.Println("  no finalized investments")
				} else {
					printSeries(series.Actual)
				}
				fmt.Printf("\nFounder equity: %s\n", format.FormatPercent(equity.FounderEquity(series.Actual), 2))
				return nil
			})
		},
	}
}

func printSeries(points []models.EquityPoint) {
	fmt.Printf("  %-20s %10s %12s %10s %12s\n", "ROUND", "RAISED", "CUMULATIVE", "EQUITY", "CUMULATIVE")
	for _, p := range points {
		fmt.Printf("  %-20s %10s %12s %10s %12s\n",
			truncate(p.Label, 20),
			fmt.Sprintf("$%.2fM", p.AmountRaised),
			fmt.Sprintf("$%.2fM", p.CumulativeRaised),
			format.FormatPercent(p.EquityGranted, 2),
			format.FormatPercent(p.CumulativeEquity, 2),
		)
	}
}
