package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-drift/recompose/cmd/recompose/internal/scenario"
	"github.com/go-drift/recompose/pkg/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Check recompose.yaml and scenario files without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			resolved, err := config.Resolve(config.FindRoot(dir))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config: %s (version %s)\n", resolved.Root, resolved.Version)

			for _, path := range args {
				sc, err := scenario.Load(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "ok %s: %d items, %d steps\n", path, len(sc.Items), len(sc.Steps))
			}
			return nil
		},
	}
}
