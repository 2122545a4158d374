package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/fundcrm/internal/models"
)

func exportCmd() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the CRM state document to JSON or YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				var w io.Writer = os.Stdout
				if output != "" && output != "-" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("export: creating output file: %w", err)
					}
					defer func() { _ = f.Close() }()
					w = f
				}

				if err := writeState(w, s.d.State(), format); err != nil {
					return fmt.Errorf("export: %w", err)
				}

				if output != "" && output != "-" {
					fmt.Fprintf(os.Stderr, "Exported %d investors and %d rounds to %s\n", len(s.d.State().VCs), len(s.d.State().Rounds), output)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file path (- for stdout)")
	return cmd
}

// writeState encodes st in the persisted document shape. YAML output keeps
// the JSON field names.
func writeState(w io.Writer, st models.State, format string) error {
	doc, err := models.EncodeState(st)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		var v any
		if err := json.Unmarshal(doc, &v); err != nil {
			return fmt.Errorf("decoding document: %w", err)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
	case "yaml":
		var v map[string]any
		if err := json.Unmarshal(doc, &v); err != nil {
			return fmt.Errorf("decoding document: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format %q (use json or yaml)", format)
	}
	return nil
}
