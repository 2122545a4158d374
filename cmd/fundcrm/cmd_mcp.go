package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	crmmcp "github.com/ajitpratap0/fundcrm/internal/mcp"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  state_summary     rounds, investors and totals
  add_round         create a round
  add_vc            add an investor, optionally into a round
  move_vc           move an investor between rounds and unsorted
  set_vc_status     change pipeline status (finalized needs an amount)
  add_meeting_note  record a meeting note
  equity            dilution projection and founder equity
  vc_brief          summarize an investor's meeting notes

Changes are saved in the background while the server runs and flushed on exit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			sess, err := openSession(cmd.Context(), logger)
			if err != nil {
				return fmt.Errorf("mcp: %w", err)
			}
			defer func() {
				if closeErr := sess.close(context.Background()); closeErr != nil {
					logger.Error("mcp: final save failed", "error", closeErr)
				}
			}()

			srv := crmmcp.NewServer(sess.d, newBriefer(logger), equityOptions(), logger)

			// Use a standard log.Logger pointing at stderr for the mcp-go error logger.
			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: fundcrm MCP server starting", "transport", "stdio", "source", sess.source)

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	return cmd
}
