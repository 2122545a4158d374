package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/fundcrm/internal/insight"
	"github.com/ajitpratap0/fundcrm/internal/models"
	"github.com/ajitpratap0/fundcrm/internal/state"
)

func noteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage investor meeting notes",
	}
	cmd.AddCommand(
		noteListCmd(),
		noteAddCmd(),
		noteEditCmd(),
		noteDeleteCmd(),
		noteBriefCmd(),
	)
	return cmd
}

func noteListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <vc>",
		Short: "List an investor's meeting notes, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				id, err := s.resolveVC(args[0])
				if err != nil {
					return err
				}
				notes := append([]models.MeetingNote(nil), s.d.State().VCs[id].MeetingNotes...)
				sort.SliceStable(notes, func(i, j int) bool { return notes[i].Timestamp.Before(notes[j].Timestamp) })
				if len(notes) == 0 {
					fmt.Println("No notes.")
				}
				for _, n := range notes {
					fmt.Printf("%s  %s  %s\n", n.ID, n.Timestamp.Format("2006-01-02 15:04"), truncate(n.Content, 80))
				}
				return nil
			})
		},
	}
}

func noteAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <vc> <content>",
		Short: "Add a meeting note stamped with the current time",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				id, err := s.resolveVC(args[0])
				if err != nil {
					return err
				}
				note := state.NewMeetingNote(args[1])
				if _, err := s.apply(state.AddMeetingNote{VCID: id, Note: note}); err != nil {
					return err
				}
				fmt.Println(note.ID)
				return nil
			})
		},
	}
}

func noteEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <vc> <note-id> <content>",
		Short: "Rewrite a meeting note",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				id, err := s.resolveVC(args[0])
				if err != nil {
					return err
				}
				_, err = s.apply(state.UpdateMeetingNote{VCID: id, NoteID: args[1], Content: args[2]})
				return err
			})
		},
	}
}

func noteDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <vc> <note-id>",
		Short: "Delete a meeting note",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				id, err := s.resolveVC(args[0])
				if err != nil {
					return err
				}
				_, err = s.apply(state.DeleteMeetingNote{VCID: id, NoteID: args[1]})
				return err
			})
		},
	}
}

func noteBriefCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "brief <vc>",
		Short: "Summarize an investor's meeting notes (Claude when configured)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				id, err := s.resolveVC(args[0])
				if err != nil {
					return err
				}
				st := s.d.State()
				var round *models.Round
				if roundID, _ := st.ContainerOf(id); roundID != "" {
					round = &st.Rounds[st.RoundByID(roundID)]
				}
				brief, err := newBriefer(s.logger).Brief(cmd.Context(), st.VCs[id], round)
				if errors.Is(err, insight.ErrNoNotes) {
					fmt.Println("No notes to brief on.")
					return nil
				}
				if err != nil {
					return fmt.Errorf("brief: %w", err)
				}
				fmt.Println(brief.Summary)
				return nil
			})
		},
	}
}
