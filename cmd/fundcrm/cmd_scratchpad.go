package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/fundcrm/internal/state"
)

func scratchpadCmd() *cobra.Command {
	var clearPad bool
	cmd := &cobra.Command{
		Use:   "scratchpad [text]",
		Short: "Show or replace the scratchpad; use - to read the text from stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				if len(args) == 0 && !clearPad {
					fmt.Println(s.d.State().Scratchpad)
					return nil
				}
				var text string
				switch {
				case clearPad:
				case args[0] == "-":
					b, err := io.ReadAll(os.Stdin)
					if err != nil {
						return fmt.Errorf("scratchpad: reading stdin: %w", err)
					}
					text = strings.TrimRight(string(b), "\n")
				default:
					text = args[0]
				}
				_, err := s.apply(state.SetScratchpad{Text: text})
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&clearPad, "clear", false, "empty the scratchpad")
	return cmd
}
