package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/fundcrm/internal/store"
)

// healthProbeKey is read to check the remote store answers; it never exists.
const healthProbeKey = "__fundcrm_health__"

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to the configured stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			allOK := true

			// Check remote store
			remote, err := newRemoteStore(ctx, logger)
			if remote != nil {
				defer func() { _ = remote.Close() }()
			}
			switch {
			case err != nil:
				fmt.Printf("Remote (%s): FAIL (%v)\n", cfg.Remote.Backend, err)
				allOK = false
			case remote == nil:
				fmt.Printf("Remote (%s): OK (local-only)\n", cfg.Remote.Backend)
			default:
				if _, getErr := remote.Get(ctx, healthProbeKey); getErr != nil && !errors.Is(getErr, store.ErrNotFound) {
					fmt.Printf("Remote (%s): FAIL (%v)\n", cfg.Remote.Backend, getErr)
					allOK = false
				} else {
					fmt.Printf("Remote (%s): OK\n", cfg.Remote.Backend)
				}
			}

			// Check local store is writable
			if localErr := checkLocalDir(cfg.Local.Dir); localErr != nil {
				fmt.Printf("Local store: FAIL (%v)\n", localErr)
				allOK = false
			} else {
				fmt.Println("Local store: OK")
			}

			// Claude is optional; briefs fall back to a local digest.
			if cfg.Claude.APIKey == "" {
				fmt.Println("Claude API: not configured (local digest briefs)")
			} else {
				fmt.Println("Claude API: OK")
			}

			if !allOK {
				return fmt.Errorf("one or more health checks failed")
			}
			return nil
		},
	}
}

func checkLocalDir(dir string) error {
	if _, err := store.NewFileLocalStore(dir); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(filepath.Clean(name))
}
