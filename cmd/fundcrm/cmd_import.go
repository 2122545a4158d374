package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/fundcrm/internal/importer"
)

func importCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <ledger.xlsx>",
		Short: "Import investors from a convertible-ledger spreadsheet",
		Long: `Import investors from an .xlsx export whose sheet name contains "convertible ledger".

Each row with a stakeholder name and a positive principal becomes a finalized
investor. Rows are grouped into new rounds by valuation cap rounded to the
nearest million ("$2.0M Cap"); each round targets the group's total plus 10%.
Rows without a valuation cap land in unsorted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("import: opening file: %w", err)
			}
			defer func() { _ = f.Close() }()

			if dryRun {
				rows, parseErr := importer.Parse(f)
				if parseErr != nil {
					return fmt.Errorf("import: %w", parseErr)
				}
				plan := importer.Build(rows)
				for _, g := range plan.Groups {
					fmt.Printf("%-14s target %-14s %d investors\n", g.Name, "$"+g.Target.StringFixed(0), len(g.Rows))
				}
				if len(plan.Unsorted) > 0 {
					fmt.Printf("%-14s %-21s %d investors\n", "Unsorted", "", len(plan.Unsorted))
				}
				return nil
			}

			return withSession(cmd, func(s *session) error {
				res, importErr := importer.New(s.d, s.logger).Import(f)
				if importErr != nil {
					return fmt.Errorf("import: %w", importErr)
				}
				fmt.Printf("Imported %d investors into %d new rounds (%d unsorted", res.VCs, res.Rounds, res.Unsorted)
				if res.Failed > 0 {
					fmt.Printf(", %d rejected", res.Failed)
				}
				fmt.Println(")")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the rounds that would be created without saving")
	return cmd
}
