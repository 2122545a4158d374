package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/fundcrm/internal/format"
	"github.com/ajitpratap0/fundcrm/internal/models"
	"github.com/ajitpratap0/fundcrm/internal/state"
)

func vcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vc",
		Aliases: []string{"investor"},
		Short:   "Manage investors",
	}
	cmd.AddCommand(
		vcListCmd(),
		vcAddCmd(),
		vcUpdateCmd(),
		vcStatusCmd(),
		vcMoveCmd(),
		vcRemoveCmd(),
		vcDuplicateCmd(),
		vcDeleteCmd(),
	)
	return cmd
}

func printVC(vc models.VC) {
	amount := ""
	if amt, ok := vc.Commitment(); ok {
		amount = format.FormatCurrency(amt)
	}
	fmt.Printf("  %-36s  %-24s %-16s %12s  %d notes\n", vc.ID, truncate(vc.Name, 24), vc.Status, amount, len(vc.MeetingNotes))
}

func vcListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List investors by round, honoring each round's visibility",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				st := s.d.State()
				for i := range st.Rounds {
					r := st.Rounds[i]
					ids := r.VCs
					if !all {
						ids = state.VisibleVCIDs(r, st.VCs)
					}
					fmt.Printf("%s (%d/%d shown)\n", r.Name, len(ids), len(r.VCs))
					for _, id := range ids {
						printVC(st.VCs[id])
					}
				}
				fmt.Printf("Unsorted (%d)\n", len(st.UnsortedVCs))
				for _, id := range st.UnsortedVCs {
					vc := st.VCs[id]
					if !all && vc.Status == models.StatusBanished {
						continue
					}
					printVC(vc)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include investors hidden by round visibility or banishment")
	return cmd
}

func vcAddCmd() *cobra.Command {
	var (
		round, email, website, notes, status, amountRaw string
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an investor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := models.VCStatus(status)
			if !st.IsValid() {
				return fmt.Errorf("invalid status %q", status)
			}
			var amount *float64
			if amountRaw != "" {
				v, err := parseAmountFlag("amount", amountRaw)
				if err != nil {
					return err
				}
				amount = models.Amount(v)
			}
			if st == models.StatusFinalized && (amount == nil || *amount <= 0) {
				return fmt.Errorf("a finalized investor needs a positive --amount")
			}
			return withSession(cmd, func(s *session) error {
				var roundID string
				if round != "" {
					id, err := s.resolveRound(round)
					if err != nil {
						return err
					}
					roundID = id
				}
				vc := state.NewVC(args[0], st, amount)
				vc.Email = email
				vc.Website = website
				vc.Notes = notes
				if _, err := s.apply(state.AddVC{VC: vc, RoundID: roundID}); err != nil {
					return err
				}
				fmt.Println(vc.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&round, "round", "", "round id or name (default: unsorted)")
	cmd.Flags().StringVar(&email, "email", "", "contact email")
	cmd.Flags().StringVar(&website, "website", "", "website")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&status, "status", string(models.StatusNotContacted), "pipeline status")
	cmd.Flags().StringVar(&amountRaw, "amount", "", "purchase amount, required for finalized")
	return cmd
}

func vcUpdateCmd() *cobra.Command {
	var name, email, website, notes string
	cmd := &cobra.Command{
		Use:   "update <vc>",
		Short: "Edit an investor's profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				id, err := s.resolveVC(args[0])
				if err != nil {
					return err
				}
				vc := s.d.State().VCs[id]
				if cmd.Flags().Changed("name") {
					vc.Name = name
				}
				if cmd.Flags().Changed("email") {
					vc.Email = email
				}
				if cmd.Flags().Changed("website") {
					vc.Website = website
				}
				if cmd.Flags().Changed("notes") {
					vc.Notes = notes
				}
				_, err = s.apply(state.UpdateVC{VC: vc})
				return err
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&email, "email", "", "new email")
	cmd.Flags().StringVar(&website, "website", "", "new website")
	cmd.Flags().StringVar(&notes, "notes", "", "new notes")
	return cmd
}

func vcStatusCmd() *cobra.Command {
	var amountRaw string
	cmd := &cobra.Command{
		Use:   "status <vc> <status>",
		Short: "Change an investor's pipeline status",
		Long: `Change an investor's pipeline status. Valid statuses: not-contacted, contacted,
close-to-buying, finalized, likely-passed, banished. Finalized requires --amount.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			act := state.SetVCStatus{Status: models.VCStatus(args[1])}
			if !act.Status.IsValid() {
				return fmt.Errorf("invalid status %q", args[1])
			}
			if amountRaw != "" {
				v, err := parseAmountFlag("amount", amountRaw)
				if err != nil {
					return err
				}
				act.PurchaseAmount = models.Amount(v)
			}
			return withSession(cmd, func(s *session) error {
				id, err := s.resolveVC(args[0])
				if err != nil {
					return err
				}
				act.VCID = id
				_, err = s.apply(act)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&amountRaw, "amount", "", "purchase amount for finalized")
	return cmd
}

func vcMoveCmd() *cobra.Command {
	var (
		round string
		index int
	)
	cmd := &cobra.Command{
		Use:   "move <vc>",
		Short: "Move an investor to a round, or to unsorted when --round is omitted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				id, err := s.resolveVC(args[0])
				if err != nil {
					return err
				}
				from, _ := s.d.State().ContainerOf(id)
				var to string
				if round != "" {
					if to, err = s.resolveRound(round); err != nil {
						return err
					}
				}
				_, err = s.apply(state.MoveVC{VCID: id, FromRoundID: from, ToRoundID: to, Index: index})
				return err
			})
		},
	}
	cmd.Flags().StringVar(&round, "round", "", "destination round id or name")
	cmd.Flags().IntVar(&index, "index", -1, "position in the destination (default: end)")
	return cmd
}

func vcRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <vc>",
		Short: "Take an investor out of its round into unsorted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				id, err := s.resolveVC(args[0])
				if err != nil {
					return err
				}
				roundID, _ := s.d.State().ContainerOf(id)
				if roundID == "" {
					fmt.Println("No changes.")
					return nil
				}
				_, err = s.apply(state.RemoveVCFromRound{VCID: id, RoundID: roundID})
				return err
			})
		},
	}
}

func vcDuplicateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <vc>",
		Short: "Copy an investor, notes included, next to the original",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				id, err := s.resolveVC(args[0])
				if err != nil {
					return err
				}
				act := state.Duplicate(id)
				if _, err := s.apply(act); err != nil {
					return err
				}
				fmt.Println(act.NewID)
				return nil
			})
		},
	}
}

func vcDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <vc>",
		Short: "Delete an investor permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				id, err := s.resolveVC(args[0])
				if err != nil {
					return err
				}
				_, err = s.apply(state.DeleteVC{VCID: id})
				return err
			})
		},
	}
}
