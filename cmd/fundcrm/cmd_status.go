package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/fundcrm/internal/format"
	"github.com/ajitpratap0/fundcrm/internal/persist"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pipeline totals and where the state was loaded from",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				user := persist.Identity{UserID: cfg.Identity.UserID}.Key()
				fmt.Printf("User:    %s\n", user)
				fmt.Printf("Backend: %s\n", cfg.Remote.Backend)
				fmt.Printf("Loaded:  %s\n\n", s.source)

				stats := s.d.State().Summarize()
				fmt.Printf("Rounds:    %d\n", stats.Rounds)
				fmt.Printf("Investors: %d (%d unsorted)\n", stats.VCs, stats.Unsorted)
				fmt.Printf("Raised:    %s of %s targeted\n\n", format.FormatCurrency(stats.TotalRaised), format.FormatCurrency(stats.TotalTargets))

				statuses := make([]string, 0, len(stats.ByStatus))
				for st := range stats.ByStatus {
					statuses = append(statuses, st)
				}
				sort.Strings(statuses)
				fmt.Println("By status:")
				for _, st := range statuses {
					fmt.Printf("  %-16s %d\n", st, stats.ByStatus[st])
				}
				return nil
			})
		},
	}
}
