package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/fundcrm/internal/format"
	"github.com/ajitpratap0/fundcrm/internal/state"
)

func roundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "round",
		Short: "Manage fundraising rounds",
	}
	cmd.AddCommand(
		roundListCmd(),
		roundAddCmd(),
		roundUpdateCmd(),
		roundDeleteCmd(),
		roundReorderCmd(),
		roundVisibilityCmd(),
	)
	return cmd
}

// parseAmountFlag accepts display strings such as "$2,000,000".
func parseAmountFlag(name, raw string) (float64, error) {
	v, err := format.ParseNumber(raw)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", name, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("--%s must not be negative", name)
	}
	return v, nil
}

func roundListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rounds in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				st := s.d.State()
				if len(st.Rounds) == 0 {
					fmt.Println("No rounds yet.")
					return nil
				}
				fmt.Printf("%-36s  %-20s %14s %14s %5s  %s\n", "ID", "NAME", "CAP", "TARGET", "VCS", "VISIBILITY")
				for i := range st.Rounds {
					r := st.Rounds[i]
					fmt.Printf("%-36s  %-20s %14s %14s %5d  %s\n",
						r.ID, truncate(r.Name, 20), format.FormatCurrency(r.ValuationCap),
						format.FormatCurrency(r.TargetAmount), len(r.VCs), r.Visibility)
				}
				return nil
			})
		},
	}
}

func roundAddCmd() *cobra.Command {
	var capRaw, targetRaw string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a round",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			valuationCap, err := parseAmountFlag("cap", capRaw)
			if err != nil {
				return err
			}
			target, err := parseAmountFlag("target", targetRaw)
			if err != nil {
				return err
			}
			return withSession(cmd, func(s *session) error {
				r := state.NewRound(args[0], valuationCap, target)
				if _, err := s.apply(state.AddRound{Round: r}); err != nil {
					return err
				}
				fmt.Println(r.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&capRaw, "cap", "", "valuation cap, e.g. $10,000,000")
	cmd.Flags().StringVar(&targetRaw, "target", "", "target amount to raise")
	return cmd
}

func roundUpdateCmd() *cobra.Command {
	var name, capRaw, targetRaw string
	cmd := &cobra.Command{
		Use:   "update <round>",
		Short: "Change a round's name, valuation cap or target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				id, err := s.resolveRound(args[0])
				if err != nil {
					return err
				}
				st := s.d.State()
				r := st.Rounds[st.RoundByID(id)]
				if cmd.Flags().Changed("name") {
					r.Name = name
				}
				if cmd.Flags().Changed("cap") {
					if r.ValuationCap, err = parseAmountFlag("cap", capRaw); err != nil {
						return err
					}
				}
				if cmd.Flags().Changed("target") {
					if r.TargetAmount, err = parseAmountFlag("target", targetRaw); err != nil {
						return err
					}
				}
				_, err = s.apply(state.UpdateRound{Round: r})
				return err
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&capRaw, "cap", "", "new valuation cap")
	cmd.Flags().StringVar(&targetRaw, "target", "", "new target amount")
	return cmd
}

func roundDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <round>",
		Short: "Delete a round; its investors move to unsorted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				id, err := s.resolveRound(args[0])
				if err != nil {
					return err
				}
				_, err = s.apply(state.DeleteRound{RoundID: id})
				return err
			})
		},
	}
}

func roundReorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <round>...",
		Short: "Put rounds in the given order; unnamed rounds keep their relative order after them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				ids := make([]string, 0, len(args))
				for _, ref := range args {
					id, err := s.resolveRound(ref)
					if err != nil {
						return err
					}
					ids = append(ids, id)
				}
				_, err := s.apply(state.ReorderRounds{RoundIDs: ids})
				return err
			})
		},
	}
}

func roundVisibilityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cycle-visibility <round>",
		Short: "Cycle a round through expanded, collapsed-advanced and collapsed-hidden",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				id, err := s.resolveRound(args[0])
				if err != nil {
					return err
				}
				_, err = s.apply(state.CycleVisibility{RoundID: id})
				return err
			})
		},
	}
}
